// Copyright (c) 2023, The OTNS Authors.
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

package cli

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

const (
	defaultTermWidth = 80
	maxCmdWidth      = 10
)

// helpEntry is the documentation of one command: its first sentence and the full text.
type helpEntry struct {
	short string
	long  strings.Builder
}

type Help struct {
	termWidth uint
	entries   map[string]*helpEntry
}

var (
	cmdHeaderPattern  = regexp.MustCompile("^### .+")
	linkTargetPattern = regexp.MustCompile(`\(#[a-z]+\)`)
)

// The command reference, also shipped as cli/README.md.
//
//go:embed README.md
var cliHelpFile string

func newHelp() Help {
	h := Help{
		termWidth: defaultTermWidth,
		entries:   make(map[string]*helpEntry),
	}
	h.parseHelpFile(cliHelpFile)
	h.update()
	return h
}

// update follows the width of the user's terminal, if stdout is one.
func (help *Help) update() {
	fdTerm := int(os.Stdout.Fd())
	if !term.IsTerminal(fdTerm) {
		return
	}
	if width, _, err := term.GetSize(fdTerm); err == nil && width > maxCmdWidth {
		help.termWidth = uint(width)
	}
}

// commandNames returns the documented commands, sorted.
func (help *Help) commandNames() []string {
	cmds := make([]string, 0, len(help.entries))
	for k := range help.entries {
		cmds = append(cmds, k)
	}
	sort.Strings(cmds)
	return cmds
}

// outputGeneralHelp lists every command with its one-line summary.
func (help *Help) outputGeneralHelp() string {
	var sb strings.Builder
	for _, c := range help.commandNames() {
		sb.WriteString(fmt.Sprintf("%-15s %s\n", c, help.entries[c].short))
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	help.update()
	entry, ok := help.entries[command]
	if !ok {
		return command + "\n  (Non-existent command.)\n"
	}

	var sb strings.Builder
	w := help.termWidth - maxCmdWidth - 1
	for i, line := range strings.Split(wordwrap.WrapString(entry.long.String(), w), "\n") {
		if i == 0 {
			sb.WriteString(line + "\n")
		} else {
			sb.WriteString("  " + line + "\n")
		}
	}
	return sb.String()
}

// parseHelpFile splits the markdown reference into per-command entries. Each "### cmd" header
// starts an entry; "```shell" blocks become the definition and "```bash" blocks the example.
func (help *Help) parseHelpFile(md string) {
	var entry *helpEntry
	indent := ""
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case cmdHeaderPattern.MatchString(line):
			cmd := strings.TrimSpace(line[strings.Index(line, " ")+1:])
			entry = &helpEntry{}
			help.entries[cmd] = entry
			entry.long.WriteString(cmd + "\n")
			indent = ""
			continue
		case entry == nil:
			continue
		case line == "```shell":
			line, indent = "\nDefinition:", ""
		case line == "```bash":
			line, indent = "\nExample:", ""
		case line == "```":
			line, indent = "", ""
		}

		entry.long.WriteString(indent + markdownUnquote(line) + "\n")
		if strings.HasSuffix(line, ":") && strings.HasPrefix(line, "\n") {
			indent = "  "
		} else if entry.short == "" && len(line) > 0 {
			entry.short = firstSentence(markdownUnquote(line))
		}
	}
}

func firstSentence(s string) string {
	if idx := strings.Index(s, "."); idx > 0 {
		return s[:idx+1]
	}
	return s
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	md = strings.ReplaceAll(md, "`", "")
	md = linkTargetPattern.ReplaceAllString(md, "")
	return md
}
