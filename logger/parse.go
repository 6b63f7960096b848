// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package logger

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	OffLevelString     = "off"
	NoneLevelString    = "none"
	DefaultLevelString = "default"
)

// levelNames holds the canonical name of each level first, then its accepted aliases.
var levelNames = map[Level][]string{
	MicroLevel: {"micro"},
	TraceLevel: {"trace", "t"},
	DebugLevel: {"debug", "d"},
	InfoLevel:  {"info", "i"},
	NoteLevel:  {"note", "n"},
	WarnLevel:  {"warn", "warning", "w"},
	ErrorLevel: {"crit", "critical", "error", "err", "c", "e"},
	PanicLevel: {"panic"},
	FatalLevel: {"fatal"},
	OffLevel:   {OffLevelString, NoneLevelString},
}

// ParseLevelString parses a level name or its one-letter alias, case-insensitively. "default"
// yields DefaultLevel.
func ParseLevelString(level string) (Level, error) {
	s := strings.ToLower(level)
	if s == DefaultLevelString || s == "def" {
		return DefaultLevel, nil
	}
	for lv, names := range levelNames {
		for _, name := range names {
			if s == name {
				return lv, nil
			}
		}
	}
	return DefaultLevel, errors.Errorf("invalid log level string: %s", level)
}

func GetLevelString(level Level) string {
	names, ok := levelNames[level]
	if !ok {
		Panicf("Unknown Level: %d", level)
		return ""
	}
	return names[0]
}
