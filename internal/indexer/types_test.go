package indexer

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDataFeedWireShape(t *testing.T) {
	body := `{"feed_id":"f1","source":{"OnChain":"0xabc"},"data_type":{"Custom":"gas"},"timestamp":1,"raw_data":{"v":1},"cleaned_data":null}`

	var feed DataFeed
	if err := json.Unmarshal([]byte(body), &feed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.Source != OnChain("0xabc") || feed.DataType != Custom("gas") {
		t.Fatalf("unexpected variants: %+v %+v", feed.Source, feed.DataType)
	}

	out, err := json.Marshal(feed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"source":{"OnChain":"0xabc"}`) || !strings.Contains(string(out), `"data_type":{"Custom":"gas"}`) {
		t.Fatalf("unexpected wire shape: %s", out)
	}

	price, _ := json.Marshal(Of(KindPrice))
	if string(price) != `"Price"` {
		t.Fatalf("unit variant should encode as string, got %s", price)
	}
}

func TestVariantDecodeErrors(t *testing.T) {
	var src FeedSource
	if err := json.Unmarshal([]byte(`{"Satellite":"x"}`), &src); err == nil {
		t.Fatalf("expected unknown source error")
	}
	if err := json.Unmarshal([]byte(`{"OnChain":"a","Oracle":"b"}`), &src); err == nil {
		t.Fatalf("expected error for two variants")
	}

	var dt DataType
	if err := json.Unmarshal([]byte(`"Weather"`), &dt); err == nil {
		t.Fatalf("expected unknown data type error")
	}
	if err := json.Unmarshal([]byte(`{"Other":"x"}`), &dt); err == nil {
		t.Fatalf("expected error for non-custom object")
	}
}

func TestAgentDecisionWireShape(t *testing.T) {
	body := `{"agent_id":"a1","decision_type":{"Trade":{"action":"buy","asset":"CELO","amount":12.5}},"confidence":0.8,"reasoning":"dip","timestamp":5,"data_sources":["coingecko"]}`

	var d AgentDecision
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trade, ok := d.Decision.(Trade)
	if !ok || trade.Asset != "CELO" || trade.Amount != 12.5 {
		t.Fatalf("unexpected decision: %#v", d.Decision)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"decision_type":{"Trade":{"action":"buy","asset":"CELO","amount":12.5}}`) {
		t.Fatalf("unexpected wire shape: %s", out)
	}
}

func TestAgentDecisionValidation(t *testing.T) {
	d := AgentDecision{AgentID: "a", Decision: Alert{Severity: "high", Message: "x"}, Confidence: 1.2}
	if err := d.Validate(); err == nil {
		t.Fatalf("expected confidence range error")
	}

	var bad AgentDecision
	if err := json.Unmarshal([]byte(`{"agent_id":"a","decision_type":{"Dance":{}}}`), &bad); err == nil {
		t.Fatalf("expected unknown decision error")
	}
	if err := json.Unmarshal([]byte(`{"agent_id":"a","decision_type":"Trade"}`), &bad); err == nil {
		t.Fatalf("expected error for untagged decision")
	}
}

func TestDataFeedValidate(t *testing.T) {
	if err := (DataFeed{Source: OnChain("0x"), DataType: Of(KindBlock)}).Validate(); err == nil {
		t.Fatalf("expected feed_id error")
	}
	if err := (DataFeed{FeedID: "x", DataType: Of(KindBlock)}).Validate(); err == nil {
		t.Fatalf("expected source error")
	}
	bad := DataFeed{FeedID: "x", Source: OnChain("0x"), DataType: Of(KindBlock), RawData: json.RawMessage(`{"v":`)}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected raw_data error")
	}
	ok := DataFeed{FeedID: "x", Source: OnChain("0x"), DataType: Of(KindBlock)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
