package zepp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/domain"
)

// Stage mode codes as observed in captured summaries. These are
// vendor-reverse-engineered and may shift across firmware or API
// versions: 4 = light, 5 = deep, 7 and 8 = REM variants. Only 7 and 8
// feed the REM derivation; light/deep minutes come from the dp/lt
// totals, not from re-aggregating segments.
const (
	stageModeLight = 4
	stageModeDeep  = 5
	stageModeREMA  = 7
	stageModeREMB  = 8
)

type bandDataResponse struct {
	Data []daySummary `json:"data"`
}

// daySummary is one per-day entry; Summary is a base64-wrapped JSON
// blob with abbreviated field names.
type daySummary struct {
	DateTime string `json:"date_time"`
	Summary  string `json:"summary"`
}

type summaryPayload struct {
	Sleep *sleepBlock `json:"slp"`
}

// sleepBlock is the decoded slp fragment. dp/lt/wk arrive already in
// minutes; st/ed are epoch seconds.
type sleepBlock struct {
	DeepMinutes  int            `json:"dp"`
	LightMinutes int            `json:"lt"`
	WakeMinutes  int            `json:"wk"`
	StartEpoch   int64          `json:"st"`
	StopEpoch    int64          `json:"ed"`
	NapMinutes   int            `json:"nap"`
	Stages       []stageSegment `json:"stage"`
}

// stageSegment start/stop are minutes relative to the start of the
// segment's day, not epoch values.
type stageSegment struct {
	Mode  int `json:"mode"`
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

// BandData fetches daily summaries for the inclusive [from, to] date
// range and normalizes each day that carries a sleep block. Days whose
// blob fails to decode are logged and skipped; any HTTP failure aborts
// the run. Records keep the server's ordering.
func (c *Client) BandData(ctx context.Context, cred domain.Credential, from, to string) ([]domain.SleepRecord, error) {
	c.logger.Info("retrieving band data",
		zap.String("from_date", from),
		zap.String("to_date", to),
	)

	endpoint := c.apiBaseURL + "/v1/data/band_data.json"

	params := url.Values{
		"query_type":  {"summary"},
		"device_type": {deviceModel},
		"userid":      {cred.UserID},
		"from_date":   {from},
		"to_date":     {to},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Op: "band data query", Err: err}
	}
	req.Header.Set("apptoken", cred.AppToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "band data query", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "band data query", Status: resp.StatusCode}
	}

	var payload bandDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProtocolError{Step: "band data query", Reason: "response is not JSON"}
	}

	records := make([]domain.SleepRecord, 0, len(payload.Data))
	for _, day := range payload.Data {
		record, ok, err := c.normalizeDay(day)
		if err != nil {
			// Corrupt day, not a corrupt run: skip it, keep the rest.
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				c.logger.Warn("skipping undecodable day", zap.String("date", day.DateTime), zap.Error(err))
				continue
			}
			return nil, err
		}
		if !ok {
			c.logger.Debug("no sleep recorded", zap.String("date", day.DateTime))
			continue
		}
		records = append(records, record)
	}

	c.logger.Info("band data retrieved", zap.Int("rows", len(records)))
	return records, nil
}

// normalizeDay turns one raw entry into a SleepRecord. ok is false when
// the day legitimately has no sleep block.
func (c *Client) normalizeDay(day daySummary) (domain.SleepRecord, bool, error) {
	if day.Summary == "" {
		return domain.SleepRecord{}, false, nil
	}

	raw, err := base64.StdEncoding.DecodeString(day.Summary)
	if err != nil {
		return domain.SleepRecord{}, false, &DecodeError{Date: day.DateTime, Err: fmt.Errorf("base64: %w", err)}
	}

	var summary summaryPayload
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.SleepRecord{}, false, &DecodeError{Date: day.DateTime, Err: fmt.Errorf("json: %w", err)}
	}

	if summary.Sleep == nil {
		return domain.SleepRecord{}, false, nil
	}
	slp := summary.Sleep

	return domain.SleepRecord{
		Date:                day.DateTime,
		DeepSleepMinutes:    slp.DeepMinutes,
		ShallowSleepMinutes: slp.LightMinutes,
		WakeMinutes:         slp.WakeMinutes,
		SleepStart:          c.civilTime(slp.StartEpoch),
		SleepStop:           c.civilTime(slp.StopEpoch),
		REMMinutes:          remMinutes(slp.Stages),
		NapMinutes:          slp.NapMinutes,
	}, true, nil
}

// remMinutes reconstructs REM time from the stage segments: the sum of
// mode 7 and mode 8 segment durations. The source does not guarantee
// stop >= start; a negative duration counts as zero rather than
// subtracting from the total.
func remMinutes(stages []stageSegment) int {
	total := 0
	for _, s := range stages {
		if s.Mode != stageModeREMA && s.Mode != stageModeREMB {
			continue
		}
		if d := s.Stop - s.Start; d > 0 {
			total += d
		}
	}
	return total
}

// civilTime renders an epoch-seconds value in the client's fixed
// timezone. Zero means "not recorded" and renders empty, never as the
// 1970 epoch.
func (c *Client) civilTime(epoch int64) string {
	if epoch == 0 {
		return ""
	}
	return time.Unix(epoch, 0).In(c.loc).Format(time.RFC3339)
}
