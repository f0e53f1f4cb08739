package factory

import (
	"github.com/allape/rein/config"
	"github.com/allape/rein/kvm/codec"
)

func CodecFromConfig(conf config.Config) (codec.Codec, error) {
	return &codec.JPEGEncoder{Quality: conf.Capture.Quality}, nil
}
