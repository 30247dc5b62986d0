package protocol

import (
	"errors"
	"testing"

	"github.com/soocke/leafscan-go/domain/scan"
)

func TestDecode_StateChange(t *testing.T) {
	ev, err := Decode([]byte(`{"event_type":"state_change","state":"scanning"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sc, ok := ev.(StateChange)
	if !ok || sc.State != scan.StateScanning {
		t.Fatalf("unexpected event %#v", ev)
	}
}

func TestDecode_StateChangeWithReason(t *testing.T) {
	ev, err := Decode([]byte(`{"event_type":"state_change","state":"error","data":{"message":"Classification failed: boom"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sc := ev.(StateChange)
	if sc.State != scan.StateError || sc.Message != "Classification failed: boom" {
		t.Fatalf("unexpected %+v", sc)
	}
}

func TestDecode_FrameDecodesImageAndDetections(t *testing.T) {
	msg := []byte(`{"event_type":"frame","state":"scanning","data":{"frame_base64":"aGVsbG8=","detections":[{"x1":1,"y1":2,"x2":3,"y2":4,"confidence":0.5}],"position":{"pan":45,"tilt":90},"progress":"3/20"}}`)
	ev, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	f := ev.(Frame)
	if string(f.Image) != "hello" {
		t.Fatalf("image not decoded: %q", f.Image)
	}
	if len(f.Detections) != 1 || f.Detections[0].X2 != 3 || f.Detections[0].Confidence != 0.5 {
		t.Fatalf("unexpected detections %+v", f.Detections)
	}
	if f.Position == nil || f.Position.Pan != 45 || f.Progress != "3/20" {
		t.Fatalf("unexpected extras %+v %q", f.Position, f.Progress)
	}
}

func TestDecode_DetectionMissingListIsEmpty(t *testing.T) {
	ev, err := Decode([]byte(`{"event_type":"detection","data":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	d := ev.(DetectionUpdate)
	if d.Detections == nil || len(d.Detections) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", d.Detections)
	}
}

func TestDecode_Classification(t *testing.T) {
	msg := []byte(`{"event_type":"classification","data":{"scan_index":5,"disease":"Early_Blight","confidence":0.87,"model":"resnet","inference_time_ms":41.5,"all_predictions":{"Early_Blight":0.87,"Healthy":0.1}}}`)
	ev, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	c := ev.(Classification)
	if c.ScanIndex != 5 || c.Disease != "Early_Blight" || c.Model != ModelResNet || c.InferenceTimeMs != 41.5 {
		t.Fatalf("unexpected %+v", c)
	}
	if c.AllPredictions["Healthy"] != 0.1 {
		t.Fatalf("predictions not decoded: %v", c.AllPredictions)
	}
}

func TestDecode_AdviceWithAndWithoutScanIndex(t *testing.T) {
	ev, err := Decode([]byte(`{"event_type":"advice","data":{"advice":{"severity":"None"}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	a := ev.(Advice)
	if a.HasScanIndex || a.Advice.Severity() != "None" {
		t.Fatalf("unexpected %+v", a)
	}
	ev, err = Decode([]byte(`{"event_type":"advice","data":{"scan_index":0,"advice":{"severity":"High","action_plan":"Remove leaves"}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	a = ev.(Advice)
	if !a.HasScanIndex || a.ScanIndex != 0 || a.Advice.ActionPlan() != "Remove leaves" {
		t.Fatalf("unexpected %+v", a)
	}
}

func TestDecode_ErrorEvent(t *testing.T) {
	ev, err := Decode([]byte(`{"event_type":"error","data":{"message":"camera offline"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e := ev.(StreamError); e.Message != "camera offline" {
		t.Fatalf("unexpected %+v", e)
	}
}

func TestDecode_UnknownKindIsNotAnError(t *testing.T) {
	ev, err := Decode([]byte(`{"event_type":"telemetry","data":{"battery":0.4}}`))
	if err != nil {
		t.Fatalf("unknown kinds must not fail: %v", err)
	}
	u, ok := ev.(Unknown)
	if !ok || u.Kind() != "telemetry" {
		t.Fatalf("unexpected %#v", ev)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := Decode([]byte(`{"event_type":"frame","data":{"frame_base64":"!!"}}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for bad base64, got %v", err)
	}
}

func TestEncode_DecodesBack(t *testing.T) {
	idx := 3
	msg, err := Encode(KindAdvice, scan.StateResultReady, AdviceData{ScanIndex: &idx, Advice: AdviceBody{"severity": "Low"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ev, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a := ev.(Advice); a.ScanIndex != 3 || a.Advice.Severity() != "Low" {
		t.Fatalf("unexpected %+v", a)
	}
}

func TestAdviceBody_Text(t *testing.T) {
	a := AdviceBody{"action_plan": "Spray copper fungicide.", "safety_warning": " Wear gloves. ", "rag_enabled": true}
	if got := a.Text(); got != "Spray copper fungicide.\n\nWear gloves." {
		t.Fatalf("unexpected text %q", got)
	}
	if (AdviceBody(nil)).Text() != "" {
		t.Fatalf("nil advice should render empty")
	}
}
