package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BaSui01/reask/schema"
	"github.com/BaSui01/reask/validator"
)

// schemaSpec 是 schema 规格文件的顶层结构。
// 示例:
//
//	{
//	  "schema": {
//	    "type": "object",
//	    "properties": {"age": {"type": "integer"}},
//	    "required": ["age"]
//	  },
//	  "bindings": [
//	    {"path": "age", "validator": "valid-range",
//	     "args": {"min": 0, "max": 10}, "on_fail": "reask"}
//	  ]
//	}
type schemaSpec struct {
	Schema   *schema.JSONSchema `json:"schema"`
	Bindings []bindingSpec      `json:"bindings"`
}

// bindingSpec 一条校验器绑定声明
type bindingSpec struct {
	Path      string         `json:"path"`
	Validator string         `json:"validator"`
	Args      map[string]any `json:"args"`
	OnFail    string         `json:"on_fail"`
}

// loadSchemaSpec 读取规格文件并用默认注册表构建可执行 schema
func loadSchemaSpec(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema spec: %w", err)
	}

	var spec schemaSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse schema spec: %w", err)
	}
	if spec.Schema == nil {
		return nil, fmt.Errorf("schema spec has no schema")
	}

	s := schema.New(spec.Schema)
	for _, b := range spec.Bindings {
		v, err := validator.Default().Build(b.Validator, b.Args)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Path, err)
		}
		onFail, err := parseOnFail(b.OnFail)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Path, err)
		}
		s.Bind(b.Path, v, onFail)
	}
	return s, nil
}

// parseOnFail 把规格文件中的策略名映射到 OnFailAction
func parseOnFail(name string) (validator.OnFailAction, error) {
	switch name {
	case "":
		return validator.DefaultOnFail, nil
	case string(validator.OnFailReask):
		return validator.OnFailReask, nil
	case string(validator.OnFailFix):
		return validator.OnFailFix, nil
	case string(validator.OnFailFilter):
		return validator.OnFailFilter, nil
	case string(validator.OnFailRefrain):
		return validator.OnFailRefrain, nil
	case string(validator.OnFailNoOp):
		return validator.OnFailNoOp, nil
	case string(validator.OnFailException):
		return validator.OnFailException, nil
	default:
		return "", fmt.Errorf("unknown on_fail policy %q", name)
	}
}
