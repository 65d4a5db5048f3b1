// Copyright 2021 - 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil2

import (
	"context"

	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/logutil"
)

// WithStatement tags every record logged through ctx with the statement id
// and the source line of the statement.
func WithStatement(ctx context.Context, stmtID string, line int) context.Context {
	return logutil.ContextWithFields(ctx, zap.String("stmt-id", stmtID), zap.Int("line", line))
}

func logger(ctx context.Context) *zap.Logger {
	return logutil.GetGlobalLogger().WithOptions(zap.AddCallerSkip(2), logutil.ContextFields()(ctx))
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Debug(msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Info(msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Warn(msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Error(msg, fields...)
}

// Debugf only use in develop mode
func Debugf(ctx context.Context, msg string, args ...interface{}) {
	logger(ctx).Sugar().Debugf(msg, args...)
}

// Infof only use in develop mode
func Infof(ctx context.Context, msg string, args ...interface{}) {
	logger(ctx).Sugar().Infof(msg, args...)
}

// Errorf attaches a stack trace.
func Errorf(ctx context.Context, msg string, args ...interface{}) {
	logger(ctx).WithOptions(zap.AddStacktrace(zap.ErrorLevel)).Sugar().Errorf(msg, args...)
}
