package resolver

import "testing"

func TestCodeKeysBitExact(t *testing.T) {
	if got, want := string(codeSetKey([]byte("alice"))), "code:alice"; got != want {
		t.Fatalf("codeSetKey = %q, want %q", got, want)
	}
	if got, want := string(codeBlobKey([]byte("alice"), []byte("R1"))), "code:alice:R1"; got != want {
		t.Fatalf("codeBlobKey = %q, want %q", got, want)
	}
}

func TestAccountKeysBitExact(t *testing.T) {
	if got, want := string(accountSetKey([]byte("alice"))), "account:alice"; got != want {
		t.Fatalf("accountSetKey = %q, want %q", got, want)
	}
	if got, want := string(accountBlobKey([]byte("alice"), []byte("R1"))), "account-data:alice:R1"; got != want {
		t.Fatalf("accountBlobKey = %q, want %q", got, want)
	}
}

func TestDataKeysBitExactAndNonUTF8Safe(t *testing.T) {
	key := []byte{0xff, 0x00, 0xfe}
	composite := DataCompositeKey([]byte("alice"), key)
	wantComposite := append(append([]byte("alice"), ':'), key...)
	if string(composite) != string(wantComposite) {
		t.Fatalf("DataCompositeKey = %q, want %q", composite, wantComposite)
	}

	setKey := dataSetKey(composite)
	wantSet := append([]byte("data:"), composite...)
	if string(setKey) != string(wantSet) {
		t.Fatalf("dataSetKey = %q, want %q", setKey, wantSet)
	}

	blobKey := dataBlobKey(composite, []byte("R1"))
	wantBlob := append(append([]byte("data-value:"), composite...), []byte(":R1")...)
	if string(blobKey) != string(wantBlob) {
		t.Fatalf("dataBlobKey = %q, want %q", blobKey, wantBlob)
	}
}

func TestSplitDataSetKeyRoundTrip(t *testing.T) {
	c := []byte("alice")
	storageKey := []byte("balance")
	composite := DataCompositeKey(c, storageKey)
	setKey := dataSetKey(composite)

	got, ok := splitDataSetKey(c, setKey)
	if !ok {
		t.Fatalf("splitDataSetKey failed to parse %q", setKey)
	}
	if string(got) != string(storageKey) {
		t.Fatalf("splitDataSetKey = %q, want %q", got, storageKey)
	}
}

func TestDataScanPattern(t *testing.T) {
	got := dataScanPattern([]byte("alice"), []byte("bal"))
	want := "data:alice:bal*"
	if string(got) != want {
		t.Fatalf("dataScanPattern = %q, want %q", got, want)
	}
}
