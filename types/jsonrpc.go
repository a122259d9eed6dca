package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

const JSONRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request
type Request struct {
	ID      uint64 `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

func NewRequest(id uint64, method string, params any) Request {
	if params == nil {
		params = []any{}
	}
	return Request{
		ID:      id,
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

// Response represents a JSON-RPC 2.0 response. The id is kept raw so that
// servers answering with string, null or missing ids still decode.
type Response struct {
	ID      json.RawMessage `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 && !bytes.Equal(e.Data, []byte("null")) {
		return fmt.Sprintf("RPC error (code: %d): %s (data: %s)", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("RPC error (code: %d): %s", e.Code, e.Message)
}

var (
	ErrNotAnObject   = errors.New("response is not a JSON object")
	ErrMissingResult = errors.New("response has neither result nor error")
)

// DecodeResponse parses a response body. Only the envelope is checked here;
// use Into to extract the result.
func DecodeResponse(body []byte) (*Response, error) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}
	var res Response
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// IDUint64 returns the numeric response id, if the server sent one.
func (r *Response) IDUint64() (uint64, bool) {
	if len(r.ID) == 0 {
		return 0, false
	}
	id, err := strconv.ParseUint(string(r.ID), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Into unwraps the response. An error object always wins over a result, so a
// response carrying both never decodes as a success. A response without
// either member is rejected, and a null result is only accepted when out can
// hold it (pointer, interface, map, slice or json.RawMessage).
func (r *Response) Into(out any) error {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Result) == 0 {
		return ErrMissingResult
	}
	if out == nil {
		return nil
	}
	if bytes.Equal(r.Result, []byte("null")) && !acceptsNull(out) {
		return fmt.Errorf("null result cannot be stored in %T", out)
	}
	return json.Unmarshal(r.Result, out)
}

func acceptsNull(out any) bool {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		// let json.Unmarshal report the invalid target
		return true
	}
	switch v.Elem().Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}
