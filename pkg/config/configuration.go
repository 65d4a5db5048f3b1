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

package config

import (
	"context"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/logutil"
)

type ConfigurationKeyType int

const (
	ParameterUnitKey ConfigurationKeyType = 1
)

var (
	defaultLogLevel = "info"

	defaultLogFormat = "console"

	// defaultWorkers is the number of statements the CLI compiles at once.
	defaultWorkers = 4

	defaultSchema = "sys"

	defaultSqueezeSelects = true

	defaultInlineViews = true
)

// CompilerParameters of the compiler front end
type CompilerParameters struct {
	Log logutil.LogConfig `toml:"log"`

	//default is false. true merges the pivots of OR branches with set
	//semantics, a row matching several branches is produced once.
	OrSetSemantics bool `toml:"orSetSemantics"`

	//default is true. rel2bin collapses lt/gt selects on one column into a range select
	SqueezeSelects *bool `toml:"squeezeSelects"`

	//default is false. true wraps every emitted instruction with timing statements
	DebugTiming bool `toml:"debugTiming"`

	//default is true. false keeps view columns as mvc_bind references
	InlineViews *bool `toml:"inlineViews"`

	//default is 4. the count of statements compiled concurrently in batch mode
	Workers int `toml:"workers"`

	//default is 'sys'. the schema unqualified table names bind in
	DefaultSchema string `toml:"defaultSchema"`
}

// SetDefaultValues fills the unset parameters.
func (cp *CompilerParameters) SetDefaultValues() {
	if cp.Log.Level == "" {
		cp.Log.Level = defaultLogLevel
	}
	if cp.Log.Format == "" {
		cp.Log.Format = defaultLogFormat
	}
	if cp.SqueezeSelects == nil {
		v := defaultSqueezeSelects
		cp.SqueezeSelects = &v
	}
	if cp.InlineViews == nil {
		v := defaultInlineViews
		cp.InlineViews = &v
	}
	if cp.Workers <= 0 {
		cp.Workers = defaultWorkers
	}
	if cp.DefaultSchema == "" {
		cp.DefaultSchema = defaultSchema
	}
}

// Validate rejects values SetDefaultValues cannot repair.
func (cp *CompilerParameters) Validate(ctx context.Context) error {
	switch cp.Log.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfig(ctx, "log format %q", cp.Log.Format)
	}
	if cp.Workers > 1024 {
		return moerr.NewBadConfig(ctx, "workers %d exceeds 1024", cp.Workers)
	}
	return nil
}

func (cp *CompilerParameters) Squeeze() bool {
	return cp.SqueezeSelects == nil || *cp.SqueezeSelects
}

func (cp *CompilerParameters) Inline() bool {
	return cp.InlineViews == nil || *cp.InlineViews
}

// NewDefaultParameters returns the parameters used when no file is given.
func NewDefaultParameters() *CompilerParameters {
	cp := &CompilerParameters{}
	cp.SetDefaultValues()
	return cp
}

// statFile is replaced in tests.
var statFile = os.Stat

// LoadConfigFromFile decodes a toml file into CompilerParameters and fills defaults.
func LoadConfigFromFile(ctx context.Context, path string) (*CompilerParameters, error) {
	fi, err := statFile(path)
	if err != nil {
		return nil, moerr.NewBadConfig(ctx, "config file %s: %v", path, err)
	}
	if fi.IsDir() {
		return nil, moerr.NewBadConfig(ctx, "config file %s is a directory", path)
	}
	cp := &CompilerParameters{}
	if _, err = toml.DecodeFile(path, cp); err != nil {
		return nil, moerr.NewBadConfig(ctx, "decode %s: %v", path, err)
	}
	cp.SetDefaultValues()
	if err = cp.Validate(ctx); err != nil {
		return nil, err
	}
	return cp, nil
}

// LoadConfig decodes toml text.
func LoadConfig(ctx context.Context, data string) (*CompilerParameters, error) {
	cp := &CompilerParameters{}
	if _, err := toml.Decode(data, cp); err != nil {
		return nil, moerr.NewBadConfig(ctx, "decode: %v", err)
	}
	cp.SetDefaultValues()
	if err := cp.Validate(ctx); err != nil {
		return nil, err
	}
	return cp, nil
}

type ParameterUnit struct {
	SV *CompilerParameters
}

func NewParameterUnit(sv *CompilerParameters) *ParameterUnit {
	return &ParameterUnit{
		SV: sv,
	}
}

// WithParameterUnit stores pu in ctx.
func WithParameterUnit(ctx context.Context, pu *ParameterUnit) context.Context {
	return context.WithValue(ctx, ParameterUnitKey, pu)
}

// GetParameterUnit gets the configuration from the context.
// A context without one yields the default parameters.
func GetParameterUnit(ctx context.Context) *ParameterUnit {
	if ctx == nil {
		return NewParameterUnit(NewDefaultParameters())
	}
	pu, ok := ctx.Value(ParameterUnitKey).(*ParameterUnit)
	if !ok || pu == nil {
		return NewParameterUnit(NewDefaultParameters())
	}
	return pu
}
