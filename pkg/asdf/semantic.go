package asdf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"emperror.dev/errors"
	"golang.org/x/sync/errgroup"
)

const (
	eventDataset      = "QuakeML"
	provenanceGroup   = "Provenance"
	waveformsGroup    = "Waveforms"
	stationMetadata   = "StationXML"
	waveformTimeForm  = "2006-01-02T15:04:05"
	timeToleranceSecs = 1.0
)

// A provenance id is a bracketed URI-like namespace followed by a bare
// local token, e.g. {http://example.org/ns}my_id_7.
var provenanceIDPattern = regexp.MustCompile(
	`^\{[a-z]+://[a-z./_0-9A-Z?#&$-.+!*'(),]+\}\w+$`)

// validateSemantics applies the cross-field checks the structural schema
// cannot express. It runs only on a schema-valid tree and stops at the
// first fatal condition.
func (v *Validator) validateSemantics(path string, header map[string]any, tmpdir string) error {
	if err := v.checkEventDescription(path, header, tmpdir); err != nil {
		return err
	}

	groups, ok := childMap(header, "groups")
	if !ok {
		// Legal in theory but suspicious enough to tell the user.
		v.warn("Neither waveforms, nor provenance information, nor auxiliary data found.")
		return nil
	}

	if err := v.checkProvenance(path, groups, tmpdir); err != nil {
		return err
	}
	return v.checkWaveforms(path, groups, tmpdir)
}

func (v *Validator) checkEventDescription(path string, header map[string]any, tmpdir string) error {
	datasets, ok := childMap(header, "datasets")
	if !ok {
		v.warn("No QuakeML found in the file.")
		return nil
	}
	if _, ok := datasets[eventDataset]; !ok {
		v.warn("No QuakeML found in the file.")
		return nil
	}
	report, err := v.delegate(v.delegates.QuakeML, path, "/"+eventDataset,
		filepath.Join(tmpdir, "quake.xml"))
	if err != nil {
		return err
	}
	if !report.Valid {
		return newValidationError(SubdocumentValidationFailure,
			"Error validating QuakeML:\n\t%s", strings.Join(report.Errors, "\n\t"))
	}
	return nil
}

func (v *Validator) checkProvenance(path string, groups map[string]any, tmpdir string) error {
	provenance, ok := childMap(groups, provenanceGroup)
	if !ok {
		return nil
	}
	datasets, ok := childMap(provenance, "datasets")
	if !ok {
		return nil
	}
	documentPath := filepath.Join(tmpdir, "prov.xml")
	for _, name := range sortedKeys(datasets) {
		report, err := v.delegate(v.delegates.Provenance, path,
			"/"+provenanceGroup+"/"+name, documentPath)
		if err != nil {
			return err
		}
		if !report.Valid {
			return newValidationError(SubdocumentValidationFailure,
				"Validation of provenance document '%s' failed due to:\n\t%s",
				name, strings.Join(report.Errors, "\n\t"))
		}
	}
	return nil
}

// checkWaveforms runs the per-station checks. Stations are independent of
// each other, so they run on a bounded errgroup; the reported failure is
// picked in sorted station order to keep diagnostics deterministic.
func (v *Validator) checkWaveforms(path string, groups map[string]any, tmpdir string) error {
	waveforms, ok := childMap(groups, waveformsGroup)
	if !ok {
		v.warn("No waveforms found in the file.")
		return nil
	}
	stations, ok := childMap(waveforms, "groups")
	if !ok {
		v.warn("No waveforms found in the file.")
		return nil
	}

	names := sortedKeys(stations)
	results := make([]error, len(names))
	var wg errgroup.Group
	wg.SetLimit(runtime.GOMAXPROCS(0))
	for i, station := range names {
		i, station := i, station
		node, ok := childMap(stations, station)
		if !ok {
			continue
		}
		wg.Go(func() error {
			results[i] = v.checkStation(path, tmpdir, station, node)
			return nil
		})
	}
	_ = wg.Wait()
	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkStation(path string, tmpdir string, station string, node map[string]any) error {
	datasets, ok := childMap(node, "datasets")
	if !ok {
		return nil
	}

	for _, name := range sortedKeys(datasets) {
		if name == stationMetadata {
			continue
		}
		waveform, ok := childMap(datasets, name)
		if !ok {
			continue
		}
		if err := v.checkWaveformDataset(path, station, name, waveform); err != nil {
			return err
		}
	}

	if _, ok := datasets[stationMetadata]; ok {
		documentPath := filepath.Join(tmpdir,
			strings.ReplaceAll(station, ".", "_")+".xml")
		report, err := v.delegate(v.delegates.StationXML, path,
			fmt.Sprintf("/%s/%s/%s", waveformsGroup, station, stationMetadata), documentPath)
		if err != nil {
			return err
		}
		if !report.Valid {
			return newValidationError(SubdocumentValidationFailure,
				"Error validating StationXML for %s:\n\t%s",
				station, strings.Join(report.Errors, "\n\t"))
		}
	}
	return nil
}

func (v *Validator) checkWaveformDataset(path string, station string, name string, waveform map[string]any) error {
	// Station groups must only hold waveforms of their own station.
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	if thisStation := strings.Join(parts, "."); thisStation != station {
		return newValidationError(ConsistencyViolation,
			"Station group %s contains waveform %s which is from station %s.",
			station, name, thisStation)
	}

	nameStart, nameEnd, err := parseWaveformTimeRange(name)
	if err != nil {
		return newValidationError(ConsistencyViolation,
			"cannot read the time range encoded in the name of waveform '%s': %v", name, err)
	}

	sampleCount, err := waveformSampleCount(waveform)
	if err != nil {
		return newValidationError(ConsistencyViolation,
			"cannot read the sample count of waveform '%s': %v", name, err)
	}

	datasetPath := fmt.Sprintf("/%s/%s/%s", waveformsGroup, station, name)
	// The start time attribute is stored in nanoseconds since epoch.
	startInFile, err := v.source.ReadFloatAttribute(path, datasetPath+"/starttime")
	if err != nil {
		return newValidationError(AttributeMissingOrMalformed,
			"cannot read start time of waveform '%s': %v", name, err)
	}
	startInFile /= 1e9
	samplingRate, err := v.source.ReadFloatAttribute(path, datasetPath+"/sampling_rate")
	if err != nil {
		return newValidationError(AttributeMissingOrMalformed,
			"cannot read sampling rate of waveform '%s': %v", name, err)
	}
	endInFile := startInFile + float64(sampleCount-1)/samplingRate

	if math.Abs(nameStart-startInFile) > timeToleranceSecs {
		return newValidationError(ConsistencyViolation,
			"Start time in the name of the waveform data set '%s' differs from "+
				"the start time set as an attribute [%s]. Both have to agree "+
				"within a certain tolerance", name, utcString(startInFile))
	}
	if math.Abs(nameEnd-endInFile) > timeToleranceSecs {
		return newValidationError(ConsistencyViolation,
			"End time in the name of the waveform data set '%s' differs from "+
				"the end time set as an attribute [%s]. Both have to agree "+
				"within a certain tolerance", name, utcString(endInFile))
	}

	if attributes, ok := childMap(waveform, "attributes"); ok {
		if _, ok := attributes["provenance_id"]; ok {
			provenanceID, err := v.source.ReadStringAttribute(path, datasetPath+"/provenance_id")
			if err != nil {
				return newValidationError(AttributeMissingOrMalformed,
					"cannot read provenance id of waveform '%s': %v", name, err)
			}
			if !provenanceIDPattern.MatchString(provenanceID) {
				return newValidationError(ConsistencyViolation,
					"Waveform '%s' has a provenance id of '%s' which does not "+
						"match the regular expression '%s'",
					name, provenanceID, provenanceIDPattern.String())
			}
		}
	}
	return nil
}

// delegate extracts a sub-document into the temporary folder and hands it
// to the given validator.
func (v *Validator) delegate(validator SubdocumentValidator, path string, datasetPath string, documentPath string) (*Report, error) {
	if err := v.source.ExtractDatasetBytes(path, datasetPath, documentPath); err != nil {
		return nil, errors.Wrapf(err, "cannot extract '%s'", datasetPath)
	}
	fh, err := os.Open(documentPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open extracted document '%s'", documentPath)
	}
	defer fh.Close()
	report, err := validator.Validate(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "delegate failed on '%s'", datasetPath)
	}
	return report, nil
}

// parseWaveformTimeRange reads the start and end timestamps encoded in a
// waveform dataset name, e.g.
// XX.STA..BHZ__2015-01-01T00:00:00__2015-01-01T01:00:00. Both are UTC and
// returned as seconds since epoch.
func parseWaveformTimeRange(name string) (float64, float64, error) {
	tokens := strings.Split(name, "__")
	if len(tokens) < 3 {
		return 0, 0, errors.Errorf("name does not carry a start and end time")
	}
	start, err := time.Parse(waveformTimeForm, tokens[1])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid start time '%s'", tokens[1])
	}
	end, err := time.Parse(waveformTimeForm, tokens[2])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid end time '%s'", tokens[2])
	}
	return float64(start.Unix()), float64(end.Unix()), nil
}

// waveformSampleCount reads the declared dimension size of a waveform
// dataset node.
func waveformSampleCount(waveform map[string]any) (int, error) {
	dataspace, ok := childMap(waveform, "Dataspace")
	if !ok {
		return 0, errors.New("no Dataspace")
	}
	simple, ok := childMap(dataspace, "SimpleDataspace")
	if !ok {
		return 0, errors.New("no SimpleDataspace")
	}
	dimension, ok := childMap(simple, "Dimension")
	if !ok {
		return 0, errors.New("no Dimension")
	}
	size, ok := intValue(dimension["@DimSize"])
	if !ok {
		return 0, errors.New("no usable @DimSize")
	}
	return size, nil
}

func utcString(epochSeconds float64) string {
	return time.Unix(0, int64(epochSeconds*1e9)).UTC().Format("2006-01-02T15:04:05.000000Z")
}
