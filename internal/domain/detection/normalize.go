package detection

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SyntheticThreshold is the score at or above which a bare probability
// counts as synthetic.
const SyntheticThreshold = 0.5

// Normalize turns any supported provider answer into a Verdict.
//
// Supported shapes, tried in order:
//
//	{provider, request_id, raw:{...}}                 backend envelope, recursed
//	{status, genai:{ai_generated, confidence}}        genai summary
//	{status, type:{ai_generated:<score>}}             sightengine raw
//	{deepfake:{label, prob}}                          deepfake model
//	{resultsSummary:{status, metadata:{finalScore}}}  reality defender raw
//	{prediction, confidence}
//	{message, confidence}
func Normalize(body []byte) (Verdict, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if doc == nil {
		return Verdict{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	return normalizeDoc(doc)
}

func normalizeDoc(doc map[string]any) (Verdict, error) {
	if raw, ok := doc["raw"].(map[string]any); ok {
		v, err := normalizeDoc(raw)
		if err != nil {
			return Verdict{}, err
		}
		if id, ok := doc["request_id"].(string); ok && v.RequestID == "" {
			v.RequestID = id
		}
		return v, nil
	}

	requestID := firstString(doc, "request_id", "requestId")
	if req, ok := doc["request"].(map[string]any); ok && requestID == "" {
		requestID = firstString(req, "id")
	}

	if _, ok := doc["genai"]; ok {
		v, err := fromGenAI(doc)
		v.RequestID = requestID
		return v, err
	}
	if typ, ok := doc["type"].(map[string]any); ok {
		if err := requireSuccess(doc); err != nil {
			return Verdict{}, err
		}
		score, ok := number(typ["ai_generated"])
		if !ok {
			return Verdict{}, fmt.Errorf("%w: type.ai_generated missing", ErrMalformedResponse)
		}
		v := fromScore(score, PredictionFake)
		v.RequestID = requestID
		return v, nil
	}
	if df, ok := doc["deepfake"].(map[string]any); ok {
		v := fromDeepfake(df)
		v.RequestID = requestID
		return v, nil
	}
	if rs, ok := doc["resultsSummary"].(map[string]any); ok {
		v := fromResultsSummary(rs)
		v.RequestID = requestID
		return v, nil
	}
	if label, ok := doc["prediction"].(string); ok {
		conf, _ := number(doc["confidence"])
		return Verdict{Prediction: ParsePrediction(label), Confidence: clamp(conf), RequestID: requestID}, nil
	}
	if _, ok := doc["message"]; ok {
		if conf, ok := number(doc["confidence"]); ok {
			return Verdict{Prediction: PredictionUnknown, Confidence: clamp(conf), RequestID: requestID}, nil
		}
	}
	return Verdict{}, fmt.Errorf("%w: unrecognized shape", ErrMalformedResponse)
}

func fromGenAI(doc map[string]any) (Verdict, error) {
	if err := requireSuccess(doc); err != nil {
		return Verdict{}, err
	}
	g, ok := doc["genai"].(map[string]any)
	if !ok {
		return Verdict{}, ErrAnalysisFailed
	}
	switch flag := g["ai_generated"].(type) {
	case bool:
		conf, _ := number(g["confidence"])
		p := PredictionReal
		if flag {
			p = PredictionFake
		}
		return Verdict{Prediction: p, Confidence: clamp(conf)}, nil
	case nil:
		// ai_generated ?? false
		conf, _ := number(g["confidence"])
		return Verdict{Prediction: PredictionReal, Confidence: clamp(conf)}, nil
	default:
		score, ok := number(flag)
		if !ok {
			return Verdict{}, fmt.Errorf("%w: genai.ai_generated has type %T", ErrMalformedResponse, flag)
		}
		return fromScore(score, PredictionFake), nil
	}
}

func requireSuccess(doc map[string]any) error {
	status, _ := doc["status"].(string)
	if status != "success" {
		return ErrAnalysisFailed
	}
	return nil
}

func fromDeepfake(df map[string]any) Verdict {
	prob, hasProb := number(df["prob"])
	if !hasProb {
		prob, hasProb = number(df["score"])
	}
	prob = clamp(prob)
	if label, ok := df["label"].(string); ok && strings.TrimSpace(label) != "" {
		p := ParsePrediction(label)
		if !hasProb {
			return Verdict{Prediction: p}
		}
		return Verdict{Prediction: p, Confidence: confidenceFor(p, prob)}
	}
	if !hasProb {
		return Verdict{Prediction: PredictionUnknown}
	}
	return fromScore(prob, PredictionDeepfake)
}

func fromResultsSummary(rs map[string]any) Verdict {
	status, _ := rs["status"].(string)
	var p Prediction
	switch strings.ToUpper(status) {
	case "FAKE", "MANIPULATED", "LIKELY_MANIPULATED":
		p = PredictionFake
	case "AUTHENTIC", "LIKELY_AUTHENTIC", "REAL":
		p = PredictionReal
	default:
		p = PredictionUnknown
	}
	var score float64
	if md, ok := rs["metadata"].(map[string]any); ok {
		score, _ = number(md["finalScore"])
	}
	return Verdict{Prediction: p, Confidence: confidenceFor(p, clamp(score))}
}

// fromScore applies the threshold rule to a probability of being synthetic.
func fromScore(score float64, synthetic Prediction) Verdict {
	score = clamp(score)
	if score >= SyntheticThreshold {
		return Verdict{Prediction: synthetic, Confidence: score}
	}
	return Verdict{Prediction: PredictionReal, Confidence: 1 - score}
}

// confidenceFor converts a synthetic probability into confidence in p.
func confidenceFor(p Prediction, syntheticProb float64) float64 {
	if p == PredictionReal {
		return 1 - syntheticProb
	}
	return syntheticProb
}

// clamp maps percentages (1, 100] onto [0,1] and bounds everything else.
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 && v <= 100 {
		v = v / 100
	}
	if v > 1 {
		return 1
	}
	return v
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
