package openai

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// withEmptyContent copies hc (nil means a zero client) and wraps its
// transport so an empty prompt still goes out as "content": "". The library
// tags message content omitempty, which would drop the key entirely.
func withEmptyContent(hc *http.Client) *http.Client {
	out := &http.Client{}
	if hc != nil {
		clone := *hc
		out = &clone
	}
	base := out.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	out.Transport = emptyContentTransport{base: base}
	return out
}

type emptyContentTransport struct {
	base http.RoundTripper
}

func (t emptyContentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.Method != http.MethodPost {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	body, err = fillEmptyContent(body)
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return t.base.RoundTrip(out)
}

// fillEmptyContent sets content to "" on every message that has none.
// Bodies without a messages array pass through unchanged.
func fillEmptyContent(body []byte) ([]byte, error) {
	var missing []int64
	gjson.GetBytes(body, "messages").ForEach(func(i, m gjson.Result) bool {
		if !m.Get("content").Exists() {
			missing = append(missing, i.Int())
		}
		return true
	})

	var err error
	for _, i := range missing {
		body, err = sjson.SetBytes(body, fmt.Sprintf("messages.%d.content", i), "")
		if err != nil {
			return nil, fmt.Errorf("fill empty content: %w", err)
		}
	}
	return body, nil
}
