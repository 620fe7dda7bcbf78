// Package audio plays a sound when a toast appears. It uses the beep library
// to decode WAV, OGG and MP3 files, with volume control and one configurable
// sound per toast kind.
package audio
