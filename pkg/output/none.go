// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package output

import "io"

// NoneFormatter emits nothing. Commands using it write their own console
// output instead.
type NoneFormatter struct {
}

func (f *NoneFormatter) Kind() Format {
	return NoneFormat
}

func (f *NoneFormatter) Format(obj interface{}, writer io.Writer) error {
	return nil
}

var _ Formatter = (*NoneFormatter)(nil)
