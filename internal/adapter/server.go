package adapter

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/wanderer-labs/blockvault/internal/vault"
)

// Server listens for connections and dispatches each request to the store's
// command surface. Grounded on internal/server/server.go's single writeMu
// style: one busy flag guards against a slow peer parking a goroutine
// indefinitely in front of the store, though the store's own mutex (not this
// one) is what actually serializes operations.
type Server struct {
	store *vault.Store
	log   *zap.Logger

	busyMu sync.Mutex
	busy   bool
}

func NewServer(store *vault.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, log: log}
}

func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	addr := conn.RemoteAddr().String()
	s.log.Info("connection opened", zap.String("remote", addr))

	for {
		opcode, payload, err := readRequest(conn)
		if err != nil {
			if err != io.EOF {
				s.log.Warn("read request failed", zap.String("remote", addr), zap.Error(err))
			}
			return
		}

		status, resp := s.dispatch(opcode, payload)
		if err := writeResponse(conn, status, resp); err != nil {
			s.log.Warn("write response failed", zap.String("remote", addr), zap.Error(err))
			return
		}

		if status == StatusInternal {
			s.log.Warn("closing connection after internal error", zap.String("remote", addr), zap.Uint8("opcode", opcode))
			return
		}

		if opcode == OpClose {
			s.log.Info("connection closed by peer request", zap.String("remote", addr))
			return
		}
	}
}

// dispatch runs one opcode inside the adapter's sole recover() boundary
// (§7, §10.4): a fatal invariant violation inside the store becomes a logged
// StatusInternal response, after which handleConn closes the connection (it
// does so for every StatusInternal response, malformed requests included),
// rather than taking the whole process down mid-fleet.
func (s *Server) dispatch(opcode byte, payload []byte) (status byte, resp []byte) {
	if !s.acquireBusy() {
		return StatusBusy, nil
	}
	defer s.releaseBusy()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("recovered from store panic", zap.Any("panic", r), zap.Uint8("opcode", opcode))
			status, resp = StatusInternal, nil
		}
	}()

	return s.dispatchLocked(opcode, payload)
}

func (s *Server) acquireBusy() bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Server) releaseBusy() {
	s.busyMu.Lock()
	s.busy = false
	s.busyMu.Unlock()
}

func (s *Server) dispatchLocked(opcode byte, payload []byte) (byte, []byte) {
	d := NewDecoder(payload)

	switch opcode {
	case OpOpen:
		return StatusOK, nil

	case OpClose:
		return StatusOK, nil

	case OpCreateFile:
		name, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		length, err := d.ReadU32()
		if err != nil {
			return StatusInternal, nil
		}
		return byte(s.store.CreateFile(name, length)), nil

	case OpResizeFile:
		name, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		newLen, err := d.ReadU32()
		if err != nil {
			return StatusInternal, nil
		}
		return byte(s.store.ResizeFile(name, newLen)), nil

	case OpRepack:
		s.store.Repack()
		return StatusOK, nil

	case OpDeleteFile:
		name, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		return byte(s.store.DeleteFile(name)), nil

	case OpRenameFile:
		oldName, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		newName, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		return byte(s.store.RenameFile(oldName, newName)), nil

	case OpReadFile:
		name, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		off, err := d.ReadU32()
		if err != nil {
			return StatusInternal, nil
		}
		count, err := d.ReadU32()
		if err != nil {
			return StatusInternal, nil
		}
		out := make([]byte, count)
		code := s.store.ReadFile(name, off, count, out)
		if code != vault.CodeOK {
			return byte(code), nil
		}
		return StatusOK, out

	case OpWriteFile:
		name, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		off, err := d.ReadU32()
		if err != nil {
			return StatusInternal, nil
		}
		count, err := d.ReadU32()
		if err != nil {
			return StatusInternal, nil
		}
		in, err := d.ReadBytes(int(count))
		if err != nil {
			return StatusInternal, nil
		}
		return byte(s.store.WriteFile(name, off, count, in)), nil

	case OpFileSize:
		name, err := d.ReadName(vault.MaxNameBytes)
		if err != nil {
			return StatusInternal, nil
		}
		size := s.store.FileSize(name)
		if size < 0 {
			return StatusCode1, nil
		}
		e := NewEncoder(8)
		e.WriteU64(uint64(size))
		return StatusOK, e.Bytes()

	case OpFletcher:
		data, err := d.ReadBytes(d.Remaining())
		if err != nil {
			return StatusInternal, nil
		}
		h := vault.Fletcher(data)
		return StatusOK, h[:]

	case OpComputeHashTree:
		s.store.ComputeHashTree()
		return StatusOK, nil

	case OpComputeHashBlock:
		blockIdx, err := d.ReadU32()
		if err != nil {
			return StatusInternal, nil
		}
		s.store.ComputeHashBlock(int(blockIdx))
		return StatusOK, nil

	default:
		return StatusInternal, nil
	}
}

func readRequest(r io.Reader) (opcode byte, payload []byte, err error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	opcode = header[0]
	ln := binary.LittleEndian.Uint32(header[1:5])
	if ln > 64*1024*1024 {
		return 0, nil, fmt.Errorf("adapter: request payload too large: %d", ln)
	}
	payload = make([]byte, ln)
	if ln > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}
	return opcode, payload, nil
}

func writeResponse(w io.Writer, status byte, payload []byte) error {
	header := make([]byte, 5)
	header[0] = status
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}
