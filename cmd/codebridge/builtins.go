package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/host"
	"github.com/rhuss/codebridge/pkg/host/registry"
)

// builtinRegistry exposes the host tools available to guest code.
func builtinRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register(registry.NewStaticProvider("builtins").
		Add(mustSchema("get_time", `{"type":"object","properties":{}}`),
			func(ctx context.Context, rc host.RunContext, args map[string]any) (any, error) {
				return time.Now().UTC().Format(time.RFC3339), nil
			}).
		Add(mustSchema("echo", `{"type":"object","properties":{"message":{"type":"string"}}}`),
			func(ctx context.Context, rc host.RunContext, args map[string]any) (any, error) {
				message, ok := args["message"].(string)
				if !ok {
					return nil, fmt.Errorf("echo requires a string message")
				}
				return message, nil
			}))
	return reg
}

func mustSchema(name, params string) api.ToolSchema {
	ps, err := api.ParseParametersSchema([]byte(params))
	if err != nil {
		panic(fmt.Sprintf("invalid builtin schema %s: %v", name, err))
	}
	return api.ToolSchema{Name: name, Parameters: ps}
}
