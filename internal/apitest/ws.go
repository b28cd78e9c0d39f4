package apitest

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// CloseAuthFailed is the close code the backend uses for a rejected socket token.
const CloseAuthFailed = 4401

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type socket struct {
	mu   sync.Mutex // gorilla allows one concurrent writer
	conn *websocket.Conn
}

func (s *socket) write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *socket) close(code int) {
	s.mu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
	s.mu.Unlock()
	_ = s.conn.Close()
}

type dial struct {
	path  string
	token string
	ok    bool
}

func (s *Server) serveSocket(c *gin.Context) {
	path := c.Request.URL.Path
	token := c.Query("token")
	_, authErr := s.userFromToken(token, "access")

	s.wsMu.Lock()
	reject := s.rejectHandshake
	s.wsMu.Unlock()
	if reject && authErr != nil {
		s.wsMu.Lock()
		s.dials = append(s.dials, dial{path: path, token: token})
		s.wsMu.Unlock()
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	sock := &socket{conn: conn}

	s.wsMu.Lock()
	s.dials = append(s.dials, dial{path: path, token: token, ok: authErr == nil})
	s.wsMu.Unlock()

	if authErr != nil {
		sock.close(CloseAuthFailed)
		return
	}

	s.wsMu.Lock()
	s.sockets[path] = append(s.sockets[path], sock)
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		list := s.sockets[path]
		for i, x := range list {
			if x == sock {
				s.sockets[path] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		s.wsMu.Unlock()
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// RejectBadHandshakes refuses sockets with invalid tokens before the upgrade instead of
// accepting and closing them with CloseAuthFailed.
func (s *Server) RejectBadHandshakes(v bool) {
	s.wsMu.Lock()
	s.rejectHandshake = v
	s.wsMu.Unlock()
}

// Broadcast writes v as a JSON text frame to every socket connected at path.
func (s *Server) Broadcast(path string, v any) int {
	s.wsMu.Lock()
	list := append([]*socket(nil), s.sockets[path]...)
	s.wsMu.Unlock()
	n := 0
	for _, sock := range list {
		if sock.write(v) == nil {
			n++
		}
	}
	return n
}

// BroadcastRaw writes a raw text frame (used to send malformed payloads).
func (s *Server) BroadcastRaw(path string, frame []byte) {
	s.wsMu.Lock()
	list := append([]*socket(nil), s.sockets[path]...)
	s.wsMu.Unlock()
	for _, sock := range list {
		sock.mu.Lock()
		_ = sock.conn.WriteMessage(websocket.TextMessage, frame)
		sock.mu.Unlock()
	}
}

// CloseSockets closes every open socket with code.
func (s *Server) CloseSockets(code int) {
	s.wsMu.Lock()
	var all []*socket
	for _, list := range s.sockets {
		all = append(all, list...)
	}
	s.wsMu.Unlock()
	for _, sock := range all {
		sock.close(code)
	}
}

func (s *Server) SocketCount(path string) int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return len(s.sockets[path])
}

// WaitForSockets polls until at least n sockets are open at path.
func (s *Server) WaitForSockets(path string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.SocketCount(path) >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// Dials reports how many upgrade attempts reached path and how many were accepted.
func (s *Server) Dials(path string) (total, accepted int) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for _, d := range s.dials {
		if d.path != path {
			continue
		}
		total++
		if d.ok {
			accepted++
		}
	}
	return total, accepted
}
