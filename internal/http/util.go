package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// pageParams 解析 page/pageSize，pageSize 限制在 [1, 100]
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page := parseInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	size := parseInt(q.Get("pageSize"), 20)
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}
