// Package scanner defines the boundary to the fingerprint scanner
// subsystem. The device SDK is an opaque, possibly unreliable third-party
// integration; the capture session only ever talks to it through the
// Capability interface so test doubles and multiple in-process sessions
// stay possible.
package scanner

import (
	"context"

	"botica/pkg/domain"
)

// SampleFormat selects the sample encoding requested from the device.
type SampleFormat string

// FormatIntermediate is the raw intermediate format the normalization
// pipeline expects.
const FormatIntermediate SampleFormat = "intermediate"

// QualityReport carries the device's quality estimate for the sample being
// acquired. Score is -1 when the device reports no metric.
type QualityReport struct {
	Device domain.DeviceID
	Score  int
}

// SamplesEvent carries the raw sample payload for one acquisition.
type SamplesEvent struct {
	Device  domain.DeviceID
	Payload []byte
}

// Handler receives asynchronous device callbacks. Implementations must not
// block; the capture session forwards callbacks into its own run loop.
type Handler interface {
	OnDeviceConnected(device domain.DeviceID)
	OnDeviceDisconnected(device domain.DeviceID)
	OnQualityReported(report QualityReport)
	OnSamplesAcquired(samples SamplesEvent)
	OnErrorOccurred(err error)
}

// Capability is the scanner subsystem as consumed by the capture session.
//
// Acquisition is single-shot per attempt: StartAcquisition opens one
// acquisition, a samples event ends it, StopAcquisition releases the device.
// Dispose must be safe to call after any failure so the physical scanner is
// never left locked.
type Capability interface {
	Initialize(ctx context.Context) error
	EnumerateDevices(ctx context.Context) ([]domain.DeviceID, error)
	StartAcquisition(ctx context.Context, format SampleFormat, device domain.DeviceID) error
	StopAcquisition(ctx context.Context) error
	Dispose() error

	// SetHandler registers the callback sink. Passing nil detaches it.
	SetHandler(h Handler)
}
