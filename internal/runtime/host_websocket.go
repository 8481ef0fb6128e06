package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsCallTimeout = 10 * time.Second

// Method names on the wire.
const (
	MethodInitialize = "Initialize"
	MethodGetValue   = "GetValue"
	MethodSetValue   = "SetValue"
	MethodCommit     = "Commit"
	MethodFinish     = "Finish"
)

type wsRequest struct {
	ID     uint64   `json:"id"`
	Method string   `json:"method"`
	Args   []string `json:"args,omitempty"`
}

// wsResponse carries the call result and the host's last error code, so the
// client never needs a round trip for GetLastError.
type wsResponse struct {
	ID     uint64    `json:"id"`
	Result string    `json:"result"`
	Code   ErrorCode `json:"code"`
}

// WebSocketHost is a remote LMS reached over a WebSocket. One call is in
// flight at a time.
type WebSocketHost struct {
	conn *websocket.Conn

	mu      sync.Mutex
	nextID  uint64
	lastErr ErrorCode
	broken  bool
}

// DialWebSocketHost connects to a runtime endpoint such as one served by
// NewRuntimeHandler.
func DialWebSocketHost(ctx context.Context, url string) (*WebSocketHost, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial lms runtime: %w", err)
	}
	return &WebSocketHost{conn: conn, lastErr: CodeNoError}, nil
}

// Close closes the connection.
func (h *WebSocketHost) Close() error {
	return h.conn.Close(websocket.StatusNormalClosure, "")
}

func (h *WebSocketHost) Initialize() bool {
	return h.callBool(MethodInitialize)
}

func (h *WebSocketHost) GetValue(element string) string {
	v, _ := h.call(MethodGetValue, element)
	return v
}

func (h *WebSocketHost) SetValue(element, value string) bool {
	return h.callBool(MethodSetValue, element, value)
}

func (h *WebSocketHost) Commit() bool {
	return h.callBool(MethodCommit)
}

func (h *WebSocketHost) Finish() bool {
	return h.callBool(MethodFinish)
}

func (h *WebSocketHost) GetLastError() ErrorCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *WebSocketHost) callBool(method string, args ...string) bool {
	v, ok := h.call(method, args...)
	return ok && v == "true"
}

func (h *WebSocketHost) call(method string, args ...string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.broken {
		h.lastErr = CodeGeneral
		return "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsCallTimeout)
	defer cancel()

	h.nextID++
	req := wsRequest{ID: h.nextID, Method: method, Args: args}
	if err := wsjson.Write(ctx, h.conn, req); err != nil {
		h.fail(method, err)
		return "", false
	}

	var resp wsResponse
	if err := wsjson.Read(ctx, h.conn, &resp); err != nil {
		h.fail(method, err)
		return "", false
	}
	if resp.ID != req.ID {
		h.fail(method, fmt.Errorf("response id %d, want %d", resp.ID, req.ID))
		return "", false
	}
	h.lastErr = resp.Code
	if h.lastErr == "" {
		h.lastErr = CodeNoError
	}
	return resp.Result, true
}

func (h *WebSocketHost) fail(method string, err error) {
	slog.Warn("lms runtime call failed", "method", method, "error", err)
	h.lastErr = CodeGeneral
	// The connection is unusable once a read or write fails or times out.
	h.broken = true
}

// NewRuntimeHandler serves the runtime protocol over WebSocket. newAPI is
// called once per connection to obtain the data model it operates on.
func NewRuntimeHandler(newAPI func(r *http.Request) (API, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api, err := newAPI(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("runtime websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			var req wsRequest
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
					return
				}
				slog.Debug("runtime websocket closed", "error", err)
				return
			}
			resp := dispatch(api, req)
			if err := wsjson.Write(ctx, conn, resp); err != nil {
				slog.Debug("runtime websocket write failed", "error", err)
				return
			}
		}
	})
}

func dispatch(api API, req wsRequest) wsResponse {
	arg := func(i int) string {
		if i < len(req.Args) {
			return req.Args[i]
		}
		return ""
	}

	resp := wsResponse{ID: req.ID}
	switch req.Method {
	case MethodInitialize:
		resp.Result = strconv.FormatBool(api.Initialize())
	case MethodGetValue:
		resp.Result = api.GetValue(arg(0))
	case MethodSetValue:
		resp.Result = strconv.FormatBool(api.SetValue(arg(0), arg(1)))
	case MethodCommit:
		resp.Result = strconv.FormatBool(api.Commit())
	case MethodFinish:
		resp.Result = strconv.FormatBool(api.Finish())
	default:
		resp.Result = "false"
		resp.Code = CodeNotImplemented
		return resp
	}
	resp.Code = api.GetLastError()
	return resp
}
