// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

// Package output renders command results in the formats the CLI supports
// and carries the shared console color helpers.
package output

import (
	"context"
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
)

type Format string

const (
	JsonFormat Format = "json"
	NoneFormat Format = "none"
)

type Formatter interface {
	Kind() Format
	Format(obj interface{}, writer io.Writer) error
}

func NewFormatter(format string) (Formatter, error) {
	switch format {
	case string(JsonFormat):
		return &JsonFormatter{}, nil
	case string(NoneFormat):
		return &NoneFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %v", format)
	}
}

type contextKey string

const writerContextKey contextKey = "writer"

func WithWriter(ctx context.Context, writer io.Writer) context.Context {
	return context.WithValue(ctx, writerContextKey, writer)
}

func GetWriter(ctx context.Context) io.Writer {
	writer, ok := ctx.Value(writerContextKey).(io.Writer)
	if !ok {
		return colorable.NewColorableStdout()
	}

	return writer
}
