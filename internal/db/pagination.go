// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

const (
	firstPage       uint64 = 1
	defaultPageSize uint64 = 100
)

// PageSize turns the size query parameter into a LIMIT, non positive sizes get the default.
func PageSize(size int64) uint64 {
	if size > 0 {
		return uint64(size)
	}
	return defaultPageSize
}

// Offset turns a 1-based page number into an OFFSET, pages below 1 read the first page.
func Offset(page int64, size uint64) uint64 {
	p := firstPage
	if page > 0 {
		p = uint64(page)
	}
	return (p - 1) * size
}
