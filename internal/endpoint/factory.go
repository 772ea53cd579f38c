package endpoint

import "github.com/nemoria/mavrouter/internal/mavlink"

// New builds the concrete Driver for cfg's scheme.
func New(cfg Config, codec *mavlink.Codec) (Driver, error) {
	switch cfg.Scheme {
	case SchemeUDPIn:
		return NewUDPIn(cfg, codec), nil
	case SchemeUDPOut:
		return NewUDPOut(cfg, codec), nil
	case SchemeTCPOut:
		return NewTCPOut(cfg, codec), nil
	case SchemeSerial:
		return NewSerial(cfg, codec), nil
	default:
		return nil, ErrUnsupportedScheme
	}
}
