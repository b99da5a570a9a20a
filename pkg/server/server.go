// Package server implements the msgpack IPC loop spec §12 describes: a
// length-prefixed binary frame in, a length-prefixed binary frame out,
// over stdin/stdout — the same read-decode-dispatch-respond shape as the
// teacher's JSON line protocol, adapted from newline framing to a binary
// length prefix since msgpack values aren't themselves delimited.
package server

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	kkconv "github.com/kanaconv/kkconv"
)

// ConvertRequest is one incoming conversion call (spec §12).
type ConvertRequest struct {
	ID       string        `msgpack:"id"`
	Segments []WireSegment `msgpack:"segs"`
	ReqType  string        `msgpack:"rt"`
	MaxPred  int           `msgpack:"mp,omitempty"`
	Partial  bool          `msgpack:"pc,omitempty"`
}

// WireSegment is one in/out segment on the wire.
type WireSegment struct {
	Key   string `msgpack:"k"`
	Value string `msgpack:"v,omitempty"`
	Type  string `msgpack:"t"`
}

// ConvertResponse is the reply to one ConvertRequest.
type ConvertResponse struct {
	ID        string           `msgpack:"id"`
	OK        bool             `msgpack:"ok"`
	Error     string           `msgpack:"err,omitempty"`
	Segments  []WireOutSegment `msgpack:"segs,omitempty"`
	TimeTaken int64            `msgpack:"t"`
}

// WireOutSegment carries one segment's ranked candidates back.
type WireOutSegment struct {
	Key        string          `msgpack:"k"`
	Candidates []WireCandidate `msgpack:"c"`
}

// WireCandidate is one ranked candidate.
type WireCandidate struct {
	Value string         `msgpack:"v"`
	Cost  int32          `msgpack:"co"`
	Inner []WireBoundary `msgpack:"ib,omitempty"`
	Attrs uint32         `msgpack:"a,omitempty"`
}

// WireBoundary is one inner_segment_boundary 4-tuple (spec §3).
type WireBoundary struct {
	KeyLen          int `msgpack:"kl"`
	ValueLen        int `msgpack:"vl"`
	ContentKeyLen   int `msgpack:"ckl"`
	ContentValueLen int `msgpack:"cvl"`
}

var reqTypeFromWire = map[string]kkconv.RequestType{
	"CONVERSION":         kkconv.Conversion,
	"PREDICTION":         kkconv.Prediction,
	"SUGGESTION":         kkconv.Suggestion,
	"PARTIAL_PREDICTION": kkconv.PartialPrediction,
	"PARTIAL_SUGGESTION": kkconv.PartialSuggestion,
}

var segTypeFromWire = map[string]kkconv.SegmentType{
	"FREE":            kkconv.Free,
	"FIXED_BOUNDARY":  kkconv.FixedBoundary,
	"FIXED_VALUE":     kkconv.FixedValue,
	"HISTORY":         kkconv.HistorySeg,
	"SUBMITTED":       kkconv.Submitted,
}

// Server handles the msgpack IPC loop over stdin/stdout.
type Server struct {
	engine *kkconv.Engine
	reader *bufio.Reader
	writer io.Writer
}

// NewServer creates a conversion server using stdin/stdout for IPC.
func NewServer(engine *kkconv.Engine) *Server {
	return &Server{
		engine: engine,
		reader: bufio.NewReader(os.Stdin),
		writer: os.Stdout,
	}
}

// Start begins listening for length-prefixed msgpack frames.
func (s *Server) Start() error {
	log.Debug("server: starting")
	for {
		frame, err := s.readFrame()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			log.Errorf("server: reading frame: %v", err)
			return err
		}
		s.handleFrame(frame)
	}
}

// readFrame reads one uint32-length-prefixed msgpack payload.
func (s *Server) readFrame() ([]byte, error) {
	var length uint32
	if err := binary.Read(s.reader, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFrame writes v as one uint32-length-prefixed msgpack payload.
func (s *Server) writeFrame(v interface{}) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("server: marshaling response: %w", err)
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := s.writer.Write(length[:]); err != nil {
		return err
	}
	_, err = s.writer.Write(data)
	return err
}

func (s *Server) handleFrame(frame []byte) {
	var req ConvertRequest
	if err := msgpack.Unmarshal(frame, &req); err != nil {
		log.Errorf("server: unmarshaling request: %v", err)
		s.writeFrame(ConvertResponse{OK: false, Error: "invalid msgpack request"})
		return
	}
	s.handleConvert(req)
}

func (s *Server) handleConvert(req ConvertRequest) {
	reqType, ok := reqTypeFromWire[req.ReqType]
	if !ok {
		s.writeFrame(ConvertResponse{ID: req.ID, OK: false, Error: fmt.Sprintf("unknown request type %q", req.ReqType)})
		return
	}

	segments := &kkconv.Segments{
		RequestType:                 reqType,
		MaxPredictionCandidatesSize: req.MaxPred,
		List:                        make([]kkconv.Segment, len(req.Segments)),
	}
	for i, ws := range req.Segments {
		segType, ok := segTypeFromWire[ws.Type]
		if !ok {
			s.writeFrame(ConvertResponse{ID: req.ID, OK: false, Error: fmt.Sprintf("unknown segment type %q", ws.Type)})
			return
		}
		segments.List[i] = kkconv.Segment{Key: ws.Key, Value: ws.Value, Type: segType}
	}

	start := time.Now()
	convReq := kkconv.DefaultRequest()
	convReq.CreatePartialCandidates = req.Partial
	ok = s.engine.ConvertForRequest(convReq, segments)
	elapsed := time.Since(start)

	if !ok {
		s.writeFrame(ConvertResponse{ID: req.ID, OK: false, Error: "invalid input", TimeTaken: elapsed.Milliseconds()})
		return
	}

	out := make([]WireOutSegment, 0, len(segments.List))
	for _, seg := range segments.List {
		if seg.IsHistory() {
			continue
		}
		cands := make([]WireCandidate, len(seg.Candidates))
		for j, c := range seg.Candidates {
			inner := make([]WireBoundary, len(c.InnerSegmentBoundary))
			for k, b := range c.InnerSegmentBoundary {
				inner[k] = WireBoundary{KeyLen: b.KeyLen, ValueLen: b.ValueLen, ContentKeyLen: b.ContentKeyLen, ContentValueLen: b.ContentValueLen}
			}
			cands[j] = WireCandidate{Value: c.Value, Cost: c.Cost, Inner: inner, Attrs: uint32(c.Attributes)}
		}
		out = append(out, WireOutSegment{Key: seg.Key, Candidates: cands})
	}

	s.writeFrame(ConvertResponse{ID: req.ID, OK: true, Segments: out, TimeTaken: elapsed.Milliseconds()})
}
