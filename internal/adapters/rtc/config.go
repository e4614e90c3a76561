// Package rtc builds the ICE configuration that clients use to negotiate
// peer connections. Media never flows through this server.
package rtc

import (
	"errors"
	"fmt"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNoICEServers = errors.New("no ice servers configured")

// NewConfiguration parses every STUN/TURN URL and groups them into one
// pion configuration.
func NewConfiguration(urls []string) (webrtc.Configuration, error) {
	if len(urls) == 0 {
		return webrtc.Configuration{}, ErrNoICEServers
	}
	servers := make([]webrtc.ICEServer, 0, len(urls))
	for _, raw := range urls {
		uri, err := stun.ParseURI(raw)
		if err != nil {
			return webrtc.Configuration{}, fmt.Errorf("ice server %q: %w", raw, err)
		}
		log.Debug().Str("module", "rtc").Str("scheme", uri.Scheme.String()).Str("host", uri.Host).Int("port", uri.Port).Msg("ice server")
		servers = append(servers, webrtc.ICEServer{URLs: []string{raw}})
	}
	return webrtc.Configuration{ICEServers: servers}, nil
}

type ICEServer struct {
	URLs []string `json:"urls"`
}

// ClientConfig mirrors the browser RTCConfiguration shape.
type ClientConfig struct {
	ICEServers []ICEServer `json:"iceServers"`
}

func ClientConfigFrom(cfg webrtc.Configuration) ClientConfig {
	out := ClientConfig{ICEServers: make([]ICEServer, 0, len(cfg.ICEServers))}
	for _, s := range cfg.ICEServers {
		out.ICEServers = append(out.ICEServers, ICEServer{URLs: append([]string(nil), s.URLs...)})
	}
	return out
}
