package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// maxBodySize caps request bodies; inventory requests are a handful of cells.
const maxBodySize = 1 << 20

// withRequestMetadata adds client IP and User-Agent to ctx for the journal.
func withRequestMetadata(r *http.Request) context.Context {
	return core.WithOrigin(r.Context(), core.Origin{
		IPAddress: r.RemoteAddr,
		UserAgent: r.Header.Get("User-Agent"),
	})
}

// urlParam returns a decoded chi route parameter. chi matches on the raw
// path when the client escaped it.
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

// flexString accepts a JSON string or number, so `"quantity": 3` and
// `"quantity": "3"` decode the same.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// stockRequest is the body of sale and restock calls.
type stockRequest struct {
	ItemID   flexString `json:"item_id"`
	Quantity flexString `json:"quantity"`
}

// entryRequest is the body of the entries call.
type entryRequest struct {
	Header   []string   `json:"header"`
	Values   []string   `json:"values"`
	RowIndex flexString `json:"row_index"`
}

func isJSONBody(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// decodeStock reads a stockRequest from a JSON or form body.
func decodeStock(w http.ResponseWriter, r *http.Request) (stockRequest, error) {
	var req stockRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("invalid form body: %w", err)
	}
	req.ItemID = flexString(r.PostForm.Get("item_id"))
	req.Quantity = flexString(r.PostForm.Get("quantity"))
	return req, nil
}

// decodeEntry reads an entryRequest from a JSON or form body. Form bodies
// repeat the header and values fields once per column.
func decodeEntry(w http.ResponseWriter, r *http.Request) (entryRequest, error) {
	var req entryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("invalid form body: %w", err)
	}
	req.Header = r.PostForm["header"]
	req.Values = r.PostForm["values"]
	req.RowIndex = flexString(r.PostForm.Get("row_index"))
	return req, nil
}

// rowIndex parses the optional row index. Blank means append or merge.
func (e entryRequest) rowIndex() (int, error) {
	s := strings.TrimSpace(string(e.RowIndex))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidRowIndex, s)
	}
	return n, nil
}

// rejected builds the Result for a request the engine never saw.
func rejected(err error) core.Result {
	um := core.MapError(err)
	return core.Result{Success: false, Message: um.Message, Code: um.Code, Err: err}
}
