package api

import (
	"time"

	"github.com/okian/salesbonus/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithAdminTokens sets the bearer tokens accepted on /commands.
func WithAdminTokens(tokens []string) Option {
	return func(s *Server) {
		s.adminTokens = append([]string(nil), tokens...)
	}
}

// WithCORSOrigins allows browser calls to /commands from origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = append([]string(nil), origins...)
	}
}

// WithLocation sets the zone by-date backfill dates are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithCommandTimeout bounds each /commands request.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.commandTimeout = d
		}
	}
}

// WithNow sets the time source for messages that carry no timestamp.
func WithNow(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
