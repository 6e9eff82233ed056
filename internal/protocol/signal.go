package protocol

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

var errInvalidPayload = errors.New("protocol: signal payload must carry exactly one of sdp or candidate")

// SessionDescription is a JSON-friendly SDP offer/answer.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Candidate mirrors RTCIceCandidateInit.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// SignalPayload is either a session description or an ICE candidate.
type SignalPayload struct {
	SDP       *SessionDescription `json:"sdp,omitempty"`
	Candidate *Candidate          `json:"candidate,omitempty"`
}

func (p *SignalPayload) Validate() error {
	if (p.SDP == nil) == (p.Candidate == nil) {
		return errInvalidPayload
	}
	if p.SDP != nil {
		switch p.SDP.Type {
		case "offer", "answer":
		default:
			return fmt.Errorf("protocol: unsupported sdp type %q", p.SDP.Type)
		}
		if p.SDP.SDP == "" {
			return fmt.Errorf("%w: sdp", ErrMissingField)
		}
	}
	return nil
}

func (p SignalPayload) IsOffer() bool {
	return p.SDP != nil && p.SDP.Type == "offer"
}

func (p SignalPayload) IsAnswer() bool {
	return p.SDP != nil && p.SDP.Type == "answer"
}

func (p SignalPayload) IsCandidate() bool {
	return p.Candidate != nil
}

// Kind is a short label for logs.
func (p SignalPayload) Kind() string {
	switch {
	case p.SDP != nil:
		return p.SDP.Type
	case p.Candidate != nil:
		return "candidate"
	default:
		return "empty"
	}
}

func DescriptionPayload(desc webrtc.SessionDescription) SignalPayload {
	return SignalPayload{SDP: &SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}}
}

func CandidatePayload(init webrtc.ICECandidateInit) SignalPayload {
	return SignalPayload{Candidate: &Candidate{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	}}
}

func (s SessionDescription) ToPion() (webrtc.SessionDescription, error) {
	var t webrtc.SDPType
	switch s.Type {
	case "offer":
		t = webrtc.SDPTypeOffer
	case "answer":
		t = webrtc.SDPTypeAnswer
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", s.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: s.SDP}, nil
}

func (c Candidate) ToPion() webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
