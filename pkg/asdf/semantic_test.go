package asdf

import (
	"strings"
	"testing"

	"emperror.dev/errors"
	"github.com/rs/zerolog"
)

const testStation = "XX.STA"
const testWaveform = "XX.STA..BHZ__2015-01-01T00:00:00__2015-01-01T01:00:00"

// 2015-01-01T00:00:00 UTC
const testEpoch = 1420070400.0

func newSemanticValidator(t *testing.T, source *fakeSource, delegates Delegates) (*Validator, *[]string) {
	t.Helper()
	v := NewValidator(source, nil, delegates, zerolog.Nop())
	warnings := &[]string{}
	v.SetWarningSink(func(message string) {
		*warnings = append(*warnings, message)
	})
	return v, warnings
}

func waveformNode(sampleCount int) map[string]any {
	return map[string]any{
		"DataType": map[string]any{
			"IntegerType": map[string]any{"@Sign": true, "@Size": 4},
		},
		"Dataspace": map[string]any{
			"SimpleDataspace": map[string]any{
				"@Ndims":    1,
				"Dimension": map[string]any{"@DimSize": sampleCount},
			},
		},
	}
}

func headerWithStation(station string, datasets map[string]any) map[string]any {
	return map[string]any{
		"groups": map[string]any{
			"Waveforms": map[string]any{
				"groups": map[string]any{
					station: map[string]any{"datasets": datasets},
				},
			},
		},
	}
}

func expectCode(t *testing.T, err error, code ErrorCode) *ValidationError {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error is %v (%T), want a *ValidationError", err, err)
	}
	if verr.Code != code {
		t.Fatalf("code is %s, want %s: %s", verr.Code, code, verr.Message)
	}
	return verr
}

func TestSemanticsWarnsOnEmptyFile(t *testing.T) {
	v, warnings := newSemanticValidator(t, &fakeSource{}, allValidDelegates())
	header := map[string]any{"attributes": map[string]any{}}
	if err := v.validateSemantics("file.h5", header, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"No QuakeML found in the file.",
		"Neither waveforms, nor provenance information, nor auxiliary data found.",
	}
	if len(*warnings) != len(want) {
		t.Fatalf("got warnings %q, want %q", *warnings, want)
	}
	for i, message := range want {
		if (*warnings)[i] != message {
			t.Errorf("warning %d is %q, want %q", i, (*warnings)[i], message)
		}
	}
}

func TestSemanticsQuakeMLDelegationFailureIsFatal(t *testing.T) {
	source := &fakeSource{documents: map[string][]byte{"/QuakeML": []byte("<bad/>")}}
	delegates := allValidDelegates()
	delegates.QuakeML = invalidDelegate("element is not allowed here")
	v, _ := newSemanticValidator(t, source, delegates)

	header := map[string]any{"datasets": map[string]any{"QuakeML": map[string]any{}}}
	err := v.validateSemantics("file.h5", header, t.TempDir())
	verr := expectCode(t, err, SubdocumentValidationFailure)
	if !strings.Contains(verr.Message, "Error validating QuakeML") {
		t.Errorf("unexpected diagnostic: %s", verr.Message)
	}
	if !strings.Contains(verr.Message, "element is not allowed here") {
		t.Errorf("delegate diagnostics missing: %s", verr.Message)
	}
}

func TestSemanticsProvenanceDelegationFailureNamesDocument(t *testing.T) {
	source := &fakeSource{documents: map[string][]byte{
		"/Provenance/example_prov": []byte("<bad/>"),
	}}
	delegates := allValidDelegates()
	delegates.Provenance = invalidDelegate("missing agent")
	v, _ := newSemanticValidator(t, source, delegates)

	header := map[string]any{
		"groups": map[string]any{
			"Provenance": map[string]any{
				"datasets": map[string]any{"example_prov": map[string]any{}},
			},
		},
	}
	err := v.validateSemantics("file.h5", header, t.TempDir())
	verr := expectCode(t, err, SubdocumentValidationFailure)
	if !strings.Contains(verr.Message, "example_prov") {
		t.Errorf("diagnostic does not name the document: %s", verr.Message)
	}
	if !strings.Contains(verr.Message, "missing agent") {
		t.Errorf("delegate diagnostics missing: %s", verr.Message)
	}
}

func TestSemanticsNoWaveformsWarns(t *testing.T) {
	v, warnings := newSemanticValidator(t, &fakeSource{}, allValidDelegates())
	header := map[string]any{"groups": map[string]any{}}
	if err := v.validateSemantics("file.h5", header, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, message := range *warnings {
		if message == "No waveforms found in the file." {
			found = true
		}
	}
	if !found {
		t.Errorf("missing waveform warning, got %q", *warnings)
	}
}

func TestSemanticsStationPrefixMismatchIsFatal(t *testing.T) {
	v, _ := newSemanticValidator(t, &fakeSource{}, allValidDelegates())
	name := "YY.OTHER..BHZ__2015-01-01T00:00:00__2015-01-01T01:00:00"
	header := headerWithStation(testStation, map[string]any{name: waveformNode(3601)})

	err := v.validateSemantics("file.h5", header, t.TempDir())
	verr := expectCode(t, err, ConsistencyViolation)
	if !strings.Contains(verr.Message, "is from station YY.OTHER") {
		t.Errorf("unexpected diagnostic: %s", verr.Message)
	}
}

func TestSemanticsStartTimeMismatchIsFatal(t *testing.T) {
	source := &fakeSource{floats: map[string]float64{
		"/Waveforms/XX.STA/" + testWaveform + "/starttime":     (testEpoch + 10) * 1e9,
		"/Waveforms/XX.STA/" + testWaveform + "/sampling_rate": 1.0,
	}}
	v, _ := newSemanticValidator(t, source, allValidDelegates())
	header := headerWithStation(testStation, map[string]any{testWaveform: waveformNode(3601)})

	err := v.validateSemantics("file.h5", header, t.TempDir())
	verr := expectCode(t, err, ConsistencyViolation)
	if !strings.Contains(verr.Message, testWaveform) {
		t.Errorf("diagnostic does not name the dataset: %s", verr.Message)
	}
	if !strings.Contains(verr.Message, "2015-01-01T00:00:10") {
		t.Errorf("diagnostic does not show the file time: %s", verr.Message)
	}
}

func TestSemanticsEndTimeMismatchIsFatal(t *testing.T) {
	source := &fakeSource{floats: map[string]float64{
		"/Waveforms/XX.STA/" + testWaveform + "/starttime":     testEpoch * 1e9,
		"/Waveforms/XX.STA/" + testWaveform + "/sampling_rate": 1.0,
	}}
	v, _ := newSemanticValidator(t, source, allValidDelegates())
	// 1801 samples at 1 Hz ends half an hour early.
	header := headerWithStation(testStation, map[string]any{testWaveform: waveformNode(1801)})

	err := v.validateSemantics("file.h5", header, t.TempDir())
	verr := expectCode(t, err, ConsistencyViolation)
	if !strings.Contains(verr.Message, "End time") {
		t.Errorf("unexpected diagnostic: %s", verr.Message)
	}
}

func TestSemanticsTimesWithinToleranceAreAccepted(t *testing.T) {
	source := &fakeSource{floats: map[string]float64{
		"/Waveforms/XX.STA/" + testWaveform + "/starttime":     (testEpoch + 0.5) * 1e9,
		"/Waveforms/XX.STA/" + testWaveform + "/sampling_rate": 1.0,
	}}
	v, _ := newSemanticValidator(t, source, allValidDelegates())
	header := headerWithStation(testStation, map[string]any{testWaveform: waveformNode(3601)})

	if err := v.validateSemantics("file.h5", header, t.TempDir()); err != nil {
		t.Errorf("half a second offset rejected: %v", err)
	}
}

func TestSemanticsProvenanceIDPatternMismatchIsFatal(t *testing.T) {
	source := &fakeSource{
		floats: map[string]float64{
			"/Waveforms/XX.STA/" + testWaveform + "/starttime":     testEpoch * 1e9,
			"/Waveforms/XX.STA/" + testWaveform + "/sampling_rate": 1.0,
		},
		strings: map[string]string{
			"/Waveforms/XX.STA/" + testWaveform + "/provenance_id": "not-a-valid-id",
		},
	}
	v, _ := newSemanticValidator(t, source, allValidDelegates())
	waveform := waveformNode(3601)
	waveform["attributes"] = map[string]any{"provenance_id": map[string]any{}}
	header := headerWithStation(testStation, map[string]any{testWaveform: waveform})

	err := v.validateSemantics("file.h5", header, t.TempDir())
	verr := expectCode(t, err, ConsistencyViolation)
	if !strings.Contains(verr.Message, "not-a-valid-id") {
		t.Errorf("diagnostic does not name the id: %s", verr.Message)
	}
	if !strings.Contains(verr.Message, "does not match the regular expression") {
		t.Errorf("diagnostic does not cite the pattern: %s", verr.Message)
	}
}

func TestSemanticsProvenanceIDPatternAccepted(t *testing.T) {
	source := &fakeSource{
		floats: map[string]float64{
			"/Waveforms/XX.STA/" + testWaveform + "/starttime":     testEpoch * 1e9,
			"/Waveforms/XX.STA/" + testWaveform + "/sampling_rate": 1.0,
		},
		strings: map[string]string{
			"/Waveforms/XX.STA/" + testWaveform + "/provenance_id": "{http://example.org/seis_prov}sp001_wf_ab",
		},
	}
	v, _ := newSemanticValidator(t, source, allValidDelegates())
	waveform := waveformNode(3601)
	waveform["attributes"] = map[string]any{"provenance_id": map[string]any{}}
	header := headerWithStation(testStation, map[string]any{testWaveform: waveform})

	if err := v.validateSemantics("file.h5", header, t.TempDir()); err != nil {
		t.Errorf("valid provenance id rejected: %v", err)
	}
}

func TestSemanticsStationMetadataDelegationFailureIsFatal(t *testing.T) {
	source := &fakeSource{documents: map[string][]byte{
		"/Waveforms/XX.STA/StationXML": []byte("<bad/>"),
	}}
	delegates := allValidDelegates()
	delegates.StationXML = invalidDelegate("wrong namespace")
	v, _ := newSemanticValidator(t, source, delegates)
	header := headerWithStation(testStation, map[string]any{"StationXML": map[string]any{}})

	err := v.validateSemantics("file.h5", header, t.TempDir())
	verr := expectCode(t, err, SubdocumentValidationFailure)
	if !strings.Contains(verr.Message, "Error validating StationXML for XX.STA") {
		t.Errorf("unexpected diagnostic: %s", verr.Message)
	}
}

// Several failing stations must always surface the same diagnostic even
// though the per-station checks run concurrently.
func TestSemanticsParallelFailureIsDeterministic(t *testing.T) {
	v, _ := newSemanticValidator(t, &fakeSource{}, allValidDelegates())
	bad := map[string]any{
		"ZZ.WRONG..BHZ__2015-01-01T00:00:00__2015-01-01T01:00:00": waveformNode(3601),
	}
	header := map[string]any{
		"groups": map[string]any{
			"Waveforms": map[string]any{
				"groups": map[string]any{
					"BB.TWO": map[string]any{"datasets": bad},
					"AA.ONE": map[string]any{"datasets": bad},
				},
			},
		},
	}
	for i := 0; i < 10; i++ {
		err := v.validateSemantics("file.h5", header, t.TempDir())
		verr := expectCode(t, err, ConsistencyViolation)
		if !strings.Contains(verr.Message, "Station group AA.ONE") {
			t.Fatalf("non-deterministic diagnostic: %s", verr.Message)
		}
	}
}
