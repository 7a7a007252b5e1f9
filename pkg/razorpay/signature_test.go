package razorpay

import "testing"

func TestVerifyPaymentSignature(t *testing.T) {
	c := &Client{keySecret: "key-secret", webhookSecret: "webhook-secret"}

	valid := SignPayload([]byte("order_A1|pay_B2"), "key-secret")
	if !c.VerifyPaymentSignature("order_A1", "pay_B2", valid) {
		t.Fatalf("expected valid signature to verify")
	}
	if c.VerifyPaymentSignature("order_A1", "pay_B2", valid[:len(valid)-1]+"0") {
		t.Fatalf("tampered signature must not verify")
	}
	if c.VerifyPaymentSignature("order_A1", "pay_OTHER", valid) {
		t.Fatalf("signature bound to another payment must not verify")
	}
	if c.VerifyPaymentSignature("", "pay_B2", valid) {
		t.Fatalf("missing order id must not verify")
	}
	if c.VerifyPaymentSignature("order_A1", "pay_B2", "") {
		t.Fatalf("empty signature must not verify")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := &Client{keySecret: "key-secret", webhookSecret: "webhook-secret"}
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	sig := SignPayload(body, "webhook-secret")
	if !c.VerifyWebhookSignature(body, sig) {
		t.Fatalf("expected valid webhook signature to verify")
	}
	if c.VerifyWebhookSignature(body, SignPayload(body, "key-secret")) {
		t.Fatalf("signature under wrong secret must not verify")
	}

	mutated := append([]byte(nil), body...)
	mutated[0] = ' '
	if c.VerifyWebhookSignature(mutated, sig) {
		t.Fatalf("signature over different bytes must not verify")
	}
}

func TestVerifySignatureNormalizesHeader(t *testing.T) {
	body := []byte("payload")
	sig := SignPayload(body, "s")
	if !VerifySignature(body, "  "+sig+"  ", "s") {
		t.Fatalf("expected surrounding whitespace to be tolerated")
	}
	if VerifySignature(body, sig, "") {
		t.Fatalf("empty secret must not verify")
	}
}
