package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/guardpost/apiserver/internal/validation"
)

type incidentResponse struct {
	RiskAssessment     string   `json:"riskAssessment" validate:"required"`
	RecommendedActions []string `json:"recommendedActions" validate:"required,min=1,max=20,dive,required"`
	Priority           string   `json:"priority" validate:"required,oneof=low medium high critical"`
}

type patrolResponse struct {
	Summary         string   `json:"summary" validate:"required"`
	Insights        []string `json:"insights" validate:"required,min=1,max=20,dive,required"`
	Recommendations []string `json:"recommendations" validate:"required,min=1,max=20,dive,required"`
}

// decodeStrict decodes a single JSON object with no unknown fields and
// validates it. Markdown code fences around the object are tolerated.
func decodeStrict(raw string, dst any) error {
	body := stripFences(raw)
	if body == "" {
		return errors.New("empty completion")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode completion: trailing data after object")
	}

	if resp, ok := dst.(*incidentResponse); ok {
		resp.Priority = strings.ToLower(strings.TrimSpace(resp.Priority))
	}
	if err := validation.Struct(dst); err != nil {
		return fmt.Errorf("completion schema: %w", err)
	}
	return nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
