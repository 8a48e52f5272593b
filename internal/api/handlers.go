package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"irrigation-gateway/internal/ml"
	"irrigation-gateway/internal/models"
	"irrigation-gateway/internal/services"
)

const (
	maxBodyBytes  = 1 << 20
	recordTimeout = 10 * time.Second
)

var labelMapping = map[string]string{"0": models.LabelOff, "1": models.LabelOn}

type healthResponse struct {
	Status         string             `json:"status"`
	ModelPath      string             `json:"model_path"`
	ModelLoaded    bool               `json:"model_loaded"`
	ModelLoadError *string            `json:"model_load_error"`
	ModelKind      *string            `json:"model_kind"`
	FeatureOrder   []string           `json:"feature_order"`
	PumpControl    PumpControlSummary `json:"pump_control"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	p := s.opts.Predictor
	resp := healthResponse{
		Status:      "ok",
		ModelPath:   s.opts.ModelPath,
		ModelLoaded: p.Ready(),
		PumpControl: s.opts.PumpControl,
	}
	if err := p.LoadError(); err != nil {
		msg := err.Error()
		resp.ModelLoadError = &msg
	}
	if m := p.Model(); m != nil {
		kind := m.Kind
		resp.ModelKind = &kind
		resp.FeatureOrder = m.Schema.Names()
	}
	resp.PumpControl.APIKeyRequired = s.opts.Guard.Required()

	writeJSON(w, http.StatusOK, resp)
}

type metadataResponse struct {
	FeatureOrder []string           `json:"feature_order"`
	LabelMapping map[string]string  `json:"label_mapping"`
	FeatureRules map[string]ml.Rule `json:"feature_rules"`
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	schema, err := s.opts.Predictor.Schema()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metadataResponse{
		FeatureOrder: schema.Names(),
		LabelMapping: labelMapping,
		FeatureRules: s.opts.Predictor.Rules(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !decodeBody(w, r, &raw) {
		return
	}
	if raw == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "request body must be a JSON object")
		return
	}

	row, err := s.opts.Predictor.ParseRow(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := s.predict([]ml.FeatureRow{row})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results[0])
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var raws []map[string]any
	if !decodeBody(w, r, &raws) {
		return
	}
	for i, raw := range raws {
		if raw == nil {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("row %d: must be a JSON object", i))
			return
		}
	}

	rows, err := s.opts.Predictor.ParseBatch(raws)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := s.predict(rows)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// predict runs the model, records metrics and hands the rows to the audit log
func (s *Server) predict(rows []ml.FeatureRow) ([]models.PredictionResult, error) {
	start := time.Now()
	results, err := s.opts.Predictor.Predict(rows)
	if err != nil {
		return nil, err
	}

	if s.opts.Observer != nil {
		labels := make([]string, len(results))
		for i, res := range results {
			labels[i] = res.PumpLabel
		}
		s.opts.Observer.ObservePrediction(labels, time.Since(start).Seconds())
	}

	if s.opts.Recorder != nil {
		records := predictionRecords(uuid.NewString(), s.opts.Predictor.Model().Kind, start, results)
		go s.record(records)
	}
	return results, nil
}

func (s *Server) record(records []models.PredictionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.opts.Recorder.SavePredictions(ctx, records); err != nil {
		log.Printf("Error saving predictions: %v", err)
	}
}

func predictionRecords(requestID, kind string, ts time.Time, results []models.PredictionResult) []models.PredictionRecord {
	records := make([]models.PredictionRecord, 0, len(results))
	for i, res := range results {
		features, err := json.Marshal(res.UsedFeatures)
		if err != nil {
			features = []byte("{}")
		}
		records = append(records, models.PredictionRecord{
			Timestamp:     ts,
			RequestID:     requestID,
			RowIndex:      uint32(i),
			ModelKind:     kind,
			PumpStatus:    uint8(res.PumpStatus),
			ProbabilityOn: res.ProbabilityOn,
			Features:      string(features),
		})
	}
	return records
}

// pumpControlBody is the wire form of a pump control request
type pumpControlBody struct {
	PumpStatus    any     `json:"pump_status"` // number or numeric string
	Source        *string `json:"source"`
	Reason        *string `json:"reason"`
	CorrelationID *string `json:"correlation_id"`
}

func (b pumpControlBody) validate() (models.PumpControlRequest, error) {
	if b.PumpStatus == nil {
		return models.PumpControlRequest{}, &ml.ValidationError{Row: -1, Field: "pump_status", Message: "field required"}
	}
	status, ok := ml.ToNumber(b.PumpStatus)
	if !ok {
		return models.PumpControlRequest{}, &ml.ValidationError{Row: -1, Field: "pump_status", Message: "must be an integer"}
	}
	if status != models.PumpOff && status != models.PumpOn {
		return models.PumpControlRequest{}, &ml.ValidationError{Row: -1, Field: "pump_status", Message: "must be 0 or 1"}
	}

	req := models.PumpControlRequest{
		PumpStatus:    int(status),
		Reason:        b.Reason,
		CorrelationID: b.CorrelationID,
	}
	if b.Source != nil {
		req.Source = *b.Source
	}
	return req, nil
}

func (s *Server) handlePumpControl(w http.ResponseWriter, r *http.Request) {
	// authorization happens before anything else so a rejected request has no side effect
	if err := s.opts.Guard.Authorize(r.Header.Get(services.APIKeyHeader)); err != nil {
		writeError(w, err)
		return
	}

	var body pumpControlBody
	if !decodeBody(w, r, &body) {
		return
	}
	req, err := body.validate()
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := s.opts.Dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handlePumpLast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.State.Get())
}

// decodeBody decodes a JSON body; it writes the error response and returns false on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			writeError(w, err)
			return false
		}
		writeDetail(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	if _, err := dec.Token(); err != io.EOF {
		writeDetail(w, http.StatusBadRequest, "invalid JSON payload: unexpected data after the JSON value")
		return false
	}
	return true
}
