package websocket

import (
	"time"

	"github.com/OldStager01/crop-yield-predictor/pkg/config"
)

const (
	defaultWriteWait       = 10 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultMaxMessageSize  = 512
	defaultBroadcastBuffer = 256
	defaultClientBuffer    = 64
)

// Settings are the connection limits applied to every client of a hub.
type Settings struct {
	MaxConnections  int
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	BroadcastBuffer int
	ClientBuffer    int
}

func NewSettings(cfg *config.WebSocketConfig) *Settings {
	s := &Settings{
		WriteWait:       defaultWriteWait,
		PongWait:        defaultPongWait,
		MaxMessageSize:  defaultMaxMessageSize,
		BroadcastBuffer: defaultBroadcastBuffer,
		ClientBuffer:    defaultClientBuffer,
	}

	if cfg != nil {
		s.MaxConnections = cfg.MaxConnections
		if cfg.WriteTimeout > 0 {
			s.WriteWait = cfg.WriteTimeout
		}
		if cfg.PingInterval > 0 {
			// the peer gets a little slack past the next ping
			s.PongWait = cfg.PingInterval * 10 / 9
		}
		if cfg.MaxMessageSize > 0 {
			s.MaxMessageSize = cfg.MaxMessageSize
		}
		if cfg.BroadcastBuffer > 0 {
			s.BroadcastBuffer = cfg.BroadcastBuffer
		}
		if cfg.ClientBuffer > 0 {
			s.ClientBuffer = cfg.ClientBuffer
		}
	}

	s.PingPeriod = (s.PongWait * 9) / 10
	return s
}
