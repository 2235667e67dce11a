package decode

import "errors"

var (
	// ErrNoAudioStream is returned by Demuxer.Open when the container has
	// no decodable audio elementary stream.
	ErrNoAudioStream = errors.New("decode: no decodable audio stream in container")
	// ErrNoVideoStream is returned by Demuxer.Open when the container has
	// no decodable video elementary stream.
	ErrNoVideoStream = errors.New("decode: no decodable video stream in container")
	// ErrUnsupportedCodec is returned by Decoder.Init when ffmpeg has no
	// registered decoder for the stream's codec id.
	ErrUnsupportedCodec = errors.New("decode: no decoder registered for codec")
	// ErrWrongState is returned when a method is called out of order
	// against the component's state machine (e.g. Start before Open).
	ErrWrongState = errors.New("decode: method called out of order")
)
