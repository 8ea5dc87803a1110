// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cclog implements a simple log wrapper for the standard log
// package. After Init, Time/Date are not logged because systemd adds them
// (default, can be changed by setting logdate to true); until Init is
// called the package-level loggers use log.LstdFlags and do print them. Uses these
// prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
//
// Trimmed to the levels cc-netloc's discovery/virtualization/fitting
// stages actually emit: debug, info, warn and err. Nothing in this
// module calls Fatal or Panic through the logger (a stage that cannot
// continue returns an error instead), so there is no CRITICAL writer
// or Fatal/Panic surface to maintain.
package cclog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]    "
	InfoPrefix  string = "<6>[INFO]     "
	WarnPrefix  string = "<4>[WARNING]  "
	ErrPrefix   string = "<3>[ERROR]    "
)

var (
	DebugLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	InfoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags|log.Lshortfile)
	WarnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	ErrLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

var loglevel string = "info"

// Init initializes cclog. lvl indicates the loglevel: "debug", "info",
// "warn", or "err". If logdate is set to true a date and time is added
// to the log output.
func Init(lvl string, logdate bool) {
	switch lvl {
	case "err":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// Nothing to do...
	default:
		fmt.Printf("cclog: loglevel %#v is invalid, using 'debug'\n", lvl)
		lvl = "debug"
	}

	flags := 0
	infoFlags, errFlags := log.Lshortfile, log.Llongfile
	if logdate {
		flags = log.LstdFlags
		infoFlags |= log.LstdFlags
		errFlags |= log.LstdFlags
	}

	DebugLog = log.New(DebugWriter, DebugPrefix, flags)
	InfoLog = log.New(InfoWriter, InfoPrefix, infoFlags)
	WarnLog = log.New(WarnWriter, WarnPrefix, infoFlags)
	ErrLog = log.New(ErrWriter, ErrPrefix, errFlags)

	loglevel = lvl
}

// Loglevel returns the current loglevel.
func Loglevel() string {
	return loglevel
}

// Debugf logs to the DEBUG writer with string formatting.
func Debugf(format string, v ...any) {
	DebugLog.Output(2, fmt.Sprintf(format, v...))
}

// Infof logs to the INFO writer with string formatting.
func Infof(format string, v ...any) {
	InfoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warnf logs to the WARNING writer with string formatting.
func Warnf(format string, v ...any) {
	WarnLog.Output(2, fmt.Sprintf(format, v...))
}

// Errorf logs to the ERROR writer with string formatting.
func Errorf(format string, v ...any) {
	ErrLog.Output(2, fmt.Sprintf(format, v...))
}
