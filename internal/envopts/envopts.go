// Copyright 2021 Airbus Defence and Space
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package envopts parses the environment variables configuring the cloud storage handlers
package envopts

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Environment variables
const (
	BlockSizeVar   = "GODAL_BLOCKSIZE"
	NumBlocksVar   = "GODAL_NUMBLOCKS"
	SplitRangesVar = "GODAL_SPLIT_CONSECUTIVE_RANGES"
)

const (
	_ = 1 << (10 * iota)
	kilobyte
	megabyte
	gigabyte
)

// ParseSize parses a byte size such as "512", "512k", "1.5MB" or "1GiB"
func ParseSize(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	i := strings.IndexFunc(s, unicode.IsLetter)
	if i == -1 {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid size %q", s)
		}
		return n, nil
	}
	num, unit := s[:i], s[i:]
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	switch unit {
	case "G", "GB", "GIB":
		f *= gigabyte
	case "M", "MB", "MIB":
		f *= megabyte
	case "K", "KB", "KIB":
		f *= kilobyte
	case "B":
	default:
		return 0, fmt.Errorf("invalid size unit %q", unit)
	}
	if f < 1 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int(f), nil
}

// BlockSize returns the size set in GODAL_BLOCKSIZE, or 0 if unset or invalid
func BlockSize() int {
	s := os.Getenv(BlockSizeVar)
	if strings.TrimSpace(s) == "" {
		return 0
	}
	n, err := ParseSize(s)
	if err != nil {
		slog.Warn("ignoring "+BlockSizeVar, "error", err)
		return 0
	}
	return n
}

// BlockSizeString returns the raw value of GODAL_BLOCKSIZE, or def if unset
func BlockSizeString(def string) string {
	if s := strings.TrimSpace(os.Getenv(BlockSizeVar)); s != "" {
		return s
	}
	return def
}

// NumBlocks returns the count set in GODAL_NUMBLOCKS, or def if unset or invalid
func NumBlocks(def int) int {
	s := strings.TrimSpace(os.Getenv(NumBlocksVar))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		slog.Warn("ignoring "+NumBlocksVar, "value", s)
		return def
	}
	return n
}

// SplitRanges reports whether GODAL_SPLIT_CONSECUTIVE_RANGES is set to a true value
func SplitRanges() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(SplitRangesVar))) {
	case "", "0", "no", "false", "off":
		return false
	default:
		return true
	}
}
