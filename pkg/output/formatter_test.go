// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package output

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewFormatter(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		formatter, err := NewFormatter("json")
		require.NoError(t, err)
		require.IsType(t, &JsonFormatter{}, formatter)
		require.Equal(t, JsonFormat, formatter.Kind())
	})

	t.Run("none", func(t *testing.T) {
		formatter, err := NewFormatter("none")
		require.NoError(t, err)
		require.IsType(t, &NoneFormatter{}, formatter)
		require.Equal(t, NoneFormat, formatter.Kind())
	})

	t.Run("unsupported", func(t *testing.T) {
		formatter, err := NewFormatter("table")
		require.Error(t, err)
		require.Nil(t, formatter)
	})
}

func TestJsonFormatter(t *testing.T) {
	formatter := &JsonFormatter{}

	obj := struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{Name: "demo", Count: 2}

	buffer := &bytes.Buffer{}
	err := formatter.Format(obj, buffer)
	require.NoError(t, err)

	expected := "{\n  \"name\": \"demo\",\n  \"count\": 2\n}\n"
	require.Equal(t, expected, buffer.String())
}

func TestJsonFormatterUnsupportedValue(t *testing.T) {
	formatter := &JsonFormatter{}

	buffer := &bytes.Buffer{}
	err := formatter.Format(func() {}, buffer)
	require.Error(t, err)
	require.Empty(t, buffer.String())
}

func TestNoneFormatter(t *testing.T) {
	formatter := &NoneFormatter{}

	buffer := &bytes.Buffer{}
	err := formatter.Format(map[string]string{"hidden": "yes"}, buffer)
	require.NoError(t, err)
	require.Empty(t, buffer.String())
}

func Test_GetWriter(t *testing.T) {
	t.Run("from context", func(t *testing.T) {
		buffer := &bytes.Buffer{}
		ctx := WithWriter(context.Background(), buffer)

		writer := GetWriter(ctx)
		require.Same(t, io.Writer(buffer), writer)
	})

	t.Run("default", func(t *testing.T) {
		writer := GetWriter(context.Background())
		require.NotNil(t, writer)
	})
}
