// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/canonical/care-service/internal/apierror"
	"github.com/canonical/care-service/internal/logging"
)

const maxBodyBytes = 1 << 20

// Response is the envelope of every JSON response
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Code    string              `json:"code,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Meta    *Pagination         `json:"_meta,omitempty"`
}

type Pagination struct {
	Page int64 `json:"page"`
	Size int64 `json:"size"`
}

func WriteJSON(w http.ResponseWriter, status int, r Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(r)
}

// WriteSuccess writes a successful envelope around data
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// WritePartial answers a committed operation whose side effect failed, data is still returned
func WritePartial(w http.ResponseWriter, status int, data interface{}, err error) {
	e, _ := apierror.As(err)

	WriteJSON(w, status, Response{
		Success: true,
		Message: e.Message,
		Data:    data,
		Code:    e.Code,
	})
}

// WriteError translates err into its envelope, errors outside the apierror taxonomy are logged
// and answered with a generic message
func WriteError(w http.ResponseWriter, err error, logger logging.LoggerInterface) {
	e, ok := apierror.As(err)
	if !ok {
		logger.Errorf("unhandled error: %v", err)
		e = apierror.ErrInternal
	}

	if e.Kind == apierror.KindInternal && ok {
		logger.Errorf("internal error: %v", err)
	}

	WriteJSON(w, e.HTTPStatus(), Response{
		Success: false,
		Message: e.Message,
		Code:    e.Code,
		Errors:  e.Fields,
	})
}

// Decode reads a JSON body into v, unknown fields are rejected
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.ErrValidation.WithMessage("Request body is required.")
		}
		return apierror.ErrValidation.WithMessage(fmt.Sprintf("Invalid request body: %v", err))
	}

	return nil
}

// ParsePagination reads page and size query parameters, missing or invalid values become zero
func ParsePagination(r *http.Request) Pagination {
	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	size, _ := strconv.ParseInt(r.URL.Query().Get("size"), 10, 64)

	return Pagination{Page: page, Size: size}
}
