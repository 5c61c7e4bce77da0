package frame

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestClassifyTextHeartbeat(t *testing.T) {
	d := New(nil)
	res := d.Classify([]byte("ok"), false)
	if res.Kind != KindHeartbeat {
		t.Errorf("Classify(ok) = %v, want KindHeartbeat", res.Kind)
	}
}

func TestClassifyTextJSON(t *testing.T) {
	d := New(nil)
	res := d.Classify([]byte(`{"game_id":"g1"}`), false)
	if res.Kind != KindText {
		t.Fatalf("Classify(json) = %v, want KindText", res.Kind)
	}
	if string(res.Payload) != `{"game_id":"g1"}` {
		t.Errorf("Payload = %s", res.Payload)
	}
}

func TestClassifyTextXML(t *testing.T) {
	d := New(nil)
	res := d.Classify([]byte(`<tick id="g1"/>`), false)
	if res.Kind != KindText {
		t.Errorf("Classify(xml) = %v, want KindText", res.Kind)
	}
}

func TestClassifyBinaryHeartbeat(t *testing.T) {
	d := New(nil)
	res := d.Classify([]byte{0x01, 0x02, 0x03}, true)
	if res.Kind != KindHeartbeat {
		t.Errorf("Classify(short binary) = %v, want KindHeartbeat", res.Kind)
	}
}

func TestClassifyBinaryGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	payload := []byte(`{"game_id":"g1","bookmaker_id":"bm1","odds_type":"moneyline","league":"NBA","old_value":"1.9","new_value":"1.85","ts":"1000"}`)
	gw.Write(payload)
	gw.Close()

	d := New(nil)
	res := d.Classify(buf.Bytes(), true)
	if res.Kind != KindText {
		t.Fatalf("Classify(gzip) = %v, err=%v, want KindText", res.Kind, res.Err)
	}
	if !bytes.Equal(res.Payload, payload) {
		t.Errorf("Payload = %s, want %s", res.Payload, payload)
	}
}

func TestClassifyNeverPanics(t *testing.T) {
	d := New(nil)
	inputs := [][]byte{nil, {}, {0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}}
	for _, in := range inputs {
		res := d.Classify(in, true)
		_ = res // must not panic regardless of Kind/Err
	}
}
