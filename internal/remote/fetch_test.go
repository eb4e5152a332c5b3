package remote

import (
	"context"
	"testing"
)

func TestFetchFileReadsTransferredContent(t *testing.T) {
	t.Cleanup(hostBreakers.reset)
	// The destination path is the stub's last argument.
	writeStubRsync(t, `for a; do last=$a; done
printf "line one\nline two\n" > "$last"`)

	data, err := FetchFile(context.Background(), nil, "", "stub-fetch-host", "/incoming/report")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "line one\nline two\n" {
		t.Fatalf("content %q", data)
	}
}

func TestFetchFileFailureSurfacesExitCode(t *testing.T) {
	t.Cleanup(hostBreakers.reset)
	writeStubRsync(t, "exit 12")

	_, err := FetchFile(context.Background(), nil, "", "stub-fetch-fail-host", "/incoming/report")
	if err == nil {
		t.Fatal("expected an error for a failed transfer")
	}
}
