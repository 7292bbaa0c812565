// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix && !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package mux

import "code.hybscloud.com/muscle/status"

func newDefault() (Multiplexer, status.Status) { return NewPoll() }
