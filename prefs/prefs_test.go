package prefs

import (
	"path/filepath"
	"testing"
)

func TestStore_EmptyThenSaved(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "device.yaml"))
	if _, ok, err := s.LastDevice(); ok || err != nil {
		t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
	}
	if err := s.SaveDevice(Device{Address: "192.168.1.50", Port: 80}); err != nil {
		t.Fatalf("save: %v", err)
	}
	d, ok, err := s.LastDevice()
	if err != nil || !ok {
		t.Fatalf("expected saved device, ok=%v err=%v", ok, err)
	}
	if d.Address != "192.168.1.50" || d.Port != 80 {
		t.Fatalf("unexpected device %+v", d)
	}
}

func TestStore_NilSafe(t *testing.T) {
	var s *Store
	if err := s.SaveDevice(Device{Address: "x"}); err != nil {
		t.Fatalf("nil store save: %v", err)
	}
	if _, ok, _ := s.LastDevice(); ok {
		t.Fatalf("nil store should report nothing saved")
	}
}
