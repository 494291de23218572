package jikan

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound    = errors.New("anime not found")
	ErrRateLimited = errors.New("catalog rate limit exceeded")
)

// NetworkError - запрос не дошел до ответа (DNS, таймаут, обрыв)
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError - ответ не 2xx
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http error: status %d", e.Status)
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// DecodeError - тело ответа не разбирается
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
