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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/meshsense/meshnode/types"
)

// NodeLogger is a node-specific log object. The display level and the optional log file are set per
// individual node. Entries are buffered and written out by Flush, which stamps them with the
// simulated tick at which they are flushed.
type NodeLogger struct {
	Id           SimNodeId
	fileLevel    Level
	displayLevel Level

	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	entries       chan logEntry
	tick          uint64
}

var (
	nodeLogs = make(map[SimNodeId]*NodeLogger, 10)
	mutex    = sync.Mutex{}
)

// GetNodeLogger gets the NodeLogger for the given simulated node, creating it if needed. If outputDir
// is non-empty, a node log file is created there.
func GetNodeLogger(outputDir string, simId int, nodeid SimNodeId) *NodeLogger {
	mutex.Lock()
	defer mutex.Unlock()

	nl, ok := nodeLogs[nodeid]
	if !ok {
		nl = &NodeLogger{
			Id:           nodeid,
			fileLevel:    DebugLevel,
			displayLevel: WarnLevel,
			entries:      make(chan logEntry, 1000),
		}
		nodeLogs[nodeid] = nl
	}
	if len(outputDir) > 0 && nl.logFile == nil {
		nl.logFileName = getLogFileName(outputDir, simId, nodeid)
		nl.isFileEnabled = true
		nl.openLogFile()
	}
	return nl
}

// NewNodeLogger creates a standalone NodeLogger that is not registered for lookup by id. Used for
// firmware instances that run outside a simulation.
func NewNodeLogger(nodeid SimNodeId, displayLevel Level) *NodeLogger {
	return &NodeLogger{
		Id:           nodeid,
		fileLevel:    OffLevel,
		displayLevel: displayLevel,
		entries:      make(chan logEntry, 1000),
	}
}

// ReleaseNodeLogger closes and forgets the NodeLogger of a deleted node.
func ReleaseNodeLogger(nodeid SimNodeId) {
	mutex.Lock()
	defer mutex.Unlock()

	if nl, ok := nodeLogs[nodeid]; ok {
		nl.Close()
		delete(nodeLogs, nodeid)
	}
}

func getLogFileName(outputDir string, simId int, nodeid SimNodeId) string {
	return filepath.Join(outputDir, fmt.Sprintf("%d_%d.log", simId, nodeid))
}

func (nl *NodeLogger) openLogFile() {
	var err error
	nl.logFile, err = os.OpenFile(nl.logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0664)
	if err != nil {
		Errorf("opening node log file %s failed: %+v", nl.logFileName, err)
		nl.isFileEnabled = false
		nl.logFile = nil
		return
	}

	header := fmt.Sprintf("#\n# Mesh node log for %s created %s\n# Tick       Lev   Message",
		GetNodeName(nl.Id), time.Now().Format(time.RFC3339))
	_ = nl.writeToLogFile(header)
}

func (nl *NodeLogger) log(level Level, format string, args []interface{}) {
	if level > nl.fileLevel && level > nl.displayLevel {
		return
	}
	entry := logEntry{
		NodeId: nl.Id,
		Level:  level,
		Msg:    getMessage(format, args),
	}
	select {
	case nl.entries <- entry:
	default:
		nl.Flush(nl.tick)
		nl.entries <- entry
	}
}

func (nl *NodeLogger) SetFileLevel(level Level) {
	nl.fileLevel = level
}

func (nl *NodeLogger) SetDisplayLevel(level Level) {
	nl.displayLevel = level
}

func (nl *NodeLogger) DisplayLevel() Level {
	return nl.displayLevel
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	nl.log(TraceLevel, format, args)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	nl.log(DebugLevel, format, args)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	nl.log(InfoLevel, format, args)
}

func (nl *NodeLogger) Notef(format string, args ...interface{}) {
	nl.log(NoteLevel, format, args)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	nl.log(WarnLevel, format, args)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	nl.log(ErrorLevel, format, args)
}

func (nl *NodeLogger) Error(err error) {
	if err == nil {
		return
	}
	nl.log(ErrorLevel, "%v", []interface{}{err})
}

func (nl *NodeLogger) writeToLogFile(line string) error {
	_, err := nl.logFile.WriteString(line + "\n")
	if err != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
		nl.isFileEnabled = false
		Errorf("couldn't write to node log file (%s), closing it", nl.logFileName)
	}
	return err
}

// Flush writes out all pending entries for the node, stamped with simulation tick.
func (nl *NodeLogger) Flush(tick uint64) {
	nl.tick = tick
	tickStr := fmt.Sprintf("%11d ", tick)
	nodeStr := GetNodeName(nl.Id) + " "
	for {
		select {
		case entry := <-nl.entries:
			if nl.isFileEnabled && nl.fileLevel >= entry.Level {
				_ = nl.writeToLogFile(fmt.Sprintf("%s%-5s %s", tickStr, GetLevelString(entry.Level), entry.Msg))
			}
			if nl.displayLevel >= entry.Level {
				emit(entry.Level, nodeStr+tickStr+entry.Msg)
			}
		default:
			return
		}
	}
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (nl *NodeLogger) IsFileEnabled() bool {
	return nl.isFileEnabled
}

// Close flushes pending entries and closes the node log file.
func (nl *NodeLogger) Close() {
	nl.Flush(nl.tick)
	if nl.logFile != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
	}
	nl.isFileEnabled = false
}
