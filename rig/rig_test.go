package rig

import (
	"errors"
	"testing"
	"time"

	"github.com/ciboulette/astrolab/camera"
	"github.com/ciboulette/astrolab/filterwheel"
	"github.com/ciboulette/astrolab/profile"
)

var errCable = errors.New("cable unplugged")

func exposeAndWait(t *testing.T, r *Rig) {
	t.Helper()
	if err := r.StartExposure(1, true); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		ok, err := r.ImageReady()
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			return
		}
	}
	t.Fatal("mock camera never became ready")
}

func TestCollect(t *testing.T) {
	r, cam, _, fw := NewMock(4, 3)
	cam.Now = func() time.Time { return time.Date(2021, 3, 14, 21, 30, 15, 0, time.UTC) }
	fw.Slot = 2
	exposeAndWait(t, r)
	rb, err := r.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if rb.Filter != "G" {
		t.Errorf("expected filter G, got %s", rb.Filter)
	}
	if rb.Camera.DateObs != "2021-03-14T21:30:15.000" {
		t.Errorf("unexpected DATE-OBS %s", rb.Camera.DateObs)
	}
	if rb.Camera.Width != 4 || rb.Camera.Height != 3 || len(rb.Camera.Pixels) != 4 {
		t.Errorf("unexpected geometry %+v", rb.Camera)
	}
	if rb.Mount.Pointing != (profile.Pointing{RA: 5, Dec: 30}) {
		t.Errorf("unexpected pointing %+v", rb.Mount.Pointing)
	}
	if rb.Camera.Temperature != 0 {
		t.Errorf("expected 0 C without a thermometer, got %v", rb.Camera.Temperature)
	}
}

func TestThermometerIsPluggable(t *testing.T) {
	r, cam, _, _ := NewMock(2, 2)
	temp := -10.5
	cam.Temperature = &temp
	exposeAndWait(t, r)
	s, err := r.ReadCamera()
	if err != nil {
		t.Fatal(err)
	}
	if s.Temperature != -10.5 {
		t.Errorf("expected camera temperature to be used, got %v", s.Temperature)
	}
	r.Thermometer = camera.FixedTemperature(-20)
	s, err = r.ReadCamera()
	if err != nil {
		t.Fatal(err)
	}
	if s.Temperature != -20 {
		t.Errorf("expected explicit thermometer to win, got %v", s.Temperature)
	}
}

func TestDeviceErrorsAreWrapped(t *testing.T) {
	r, cam, mnt, fw := NewMock(2, 2)
	exposeAndWait(t, r)

	cam.Fail = map[string]error{"ImageArray": errCable}
	_, err := r.Collect()
	var de *DeviceError
	if !errors.As(err, &de) || de.Op != "ImageArray" {
		t.Fatalf("expected ImageArray DeviceError, got %v", err)
	}
	if !errors.Is(err, ErrDeviceCommunication) || !errors.Is(err, errCable) {
		t.Errorf("expected error to match both the sentinel and the cause, got %v", err)
	}
	cam.Fail = nil

	mnt.Fail = map[string]error{"Declination": errCable}
	if _, err = r.Collect(); !errors.Is(err, ErrDeviceCommunication) {
		t.Errorf("expected mount failure to be a device error, got %v", err)
	}
	mnt.Fail = nil

	fw.Fail = map[string]error{"Names": errCable}
	if _, err = r.Collect(); !errors.Is(err, ErrDeviceCommunication) {
		t.Errorf("expected filter wheel failure to be a device error, got %v", err)
	}
}

func TestMalformedValues(t *testing.T) {
	r, cam, mnt, fw := NewMock(2, 2)
	exposeAndWait(t, r)

	fw.Slot = 7
	if _, err := r.ReadFilter(); !errors.Is(err, ErrDeviceCommunication) {
		t.Errorf("expected slot outside the name list to be rejected, got %v", err)
	}

	mnt.RA = 24.5
	if _, err := r.ReadMount(); !errors.Is(err, ErrDeviceCommunication) {
		t.Errorf("expected RA out of range to be rejected, got %v", err)
	}

	cam.Binning = 0
	if _, err := r.ReadCamera(); !errors.Is(err, ErrDeviceCommunication) {
		t.Errorf("expected binning 0 to be rejected, got %v", err)
	}
	cam.Binning = 1
	cam.Width = 1
	if _, err := r.ReadCamera(); !errors.Is(err, ErrDeviceCommunication) {
		t.Errorf("expected image larger than the sensor to be rejected, got %v", err)
	}
}

func TestMalformedDateObs(t *testing.T) {
	r, cam, _, _ := NewMock(2, 2)
	exposeAndWait(t, r)
	for _, stamp := range []string{"garbage", " "} {
		cam.DateObs = stamp
		_, err := r.ReadCamera()
		var de *DeviceError
		if !errors.As(err, &de) || de.Op != "LastExposureStartTime" || !errors.Is(err, ErrDeviceCommunication) {
			t.Errorf("expected DATE-OBS %q to be rejected, got %v", stamp, err)
		}
	}
}

type brokenThermometer struct{}

func (brokenThermometer) CCDTemperature() (float64, error) {
	return 0, errors.New("property CCDTemperature is not implemented")
}

func TestFailedTemperatureReadIsNotFatal(t *testing.T) {
	r, _, _, _ := NewMock(2, 2)
	r.Thermometer = brokenThermometer{}
	exposeAndWait(t, r)
	rb, err := r.Collect()
	if err != nil {
		t.Fatalf("expected the readback to survive a failed temperature read, got %v", err)
	}
	if rb.Camera.Temperature != 0 {
		t.Errorf("expected 0 C after a failed read, got %v", rb.Camera.Temperature)
	}
	if !errors.Is(rb.Camera.TemperatureErr, ErrDeviceCommunication) {
		t.Errorf("expected the failure to be reported as a device error, got %v", rb.Camera.TemperatureErr)
	}
	if _, err = r.Temperature(); err == nil {
		t.Error("expected a direct temperature read to report the failure")
	}
}

func TestStartExposureRejectsNonPositiveTime(t *testing.T) {
	r, _, _, _ := NewMock(2, 2)
	if err := r.StartExposure(0, true); !errors.Is(err, ErrDeviceCommunication) {
		t.Errorf("expected zero exposure time to be rejected, got %v", err)
	}
}

func TestSelectFilterAndSlew(t *testing.T) {
	r, _, mnt, fw := NewMock(2, 2)
	idx, err := r.SelectFilter("B")
	if err != nil || idx != 3 || fw.Slot != 3 {
		t.Errorf("expected B in slot 3, got idx=%d slot=%d err=%v", idx, fw.Slot, err)
	}
	_, err = r.SelectFilter("Ha")
	var unknown filterwheel.ErrUnknownFilter
	if !errors.As(err, &unknown) {
		t.Errorf("expected ErrUnknownFilter, got %v", err)
	}
	if err = r.Slew(profile.Pointing{RA: 12, Dec: -5}); err != nil {
		t.Fatal(err)
	}
	if mnt.RA != 12 || mnt.Dec != -5 {
		t.Errorf("expected mount at 12h -5d, got %v %v", mnt.RA, mnt.Dec)
	}
}
