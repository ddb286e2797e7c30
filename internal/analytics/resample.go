package analytics

import "time"

// ResamplePeriod is a calendar bucket for Resample.
type ResamplePeriod string

const (
	ResampleWeekly  ResamplePeriod = "W"
	ResampleMonthly ResamplePeriod = "M"
	ResampleYearly  ResamplePeriod = "Y"
)

// Resample aggregates s into the given period: open=first, high=max,
// low=min, close=last, adj_close=last, volume=sum, then recomputes
// returns on the resampled adjusted close.
func (s Series) Resample(period ResamplePeriod) Series {
	if s.Empty() {
		return Series{}
	}

	bucketOf := func(t time.Time) time.Time {
		switch period {
		case ResampleWeekly:
			wd := int(t.Weekday())
			offset := (wd + 6) % 7 // days since Monday
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, -offset)
		case ResampleYearly:
			return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
		default: // Monthly
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		}
	}

	var out Series
	var curKey time.Time
	started := false
	var open, high, low, close, adjClose float64
	var volume int64

	flush := func() {
		out.Dates = append(out.Dates, curKey)
		out.Open = append(out.Open, open)
		out.High = append(out.High, high)
		out.Low = append(out.Low, low)
		out.Close = append(out.Close, close)
		out.AdjClose = append(out.AdjClose, adjClose)
		out.Volume = append(out.Volume, volume)
	}

	for i := range s.Dates {
		key := bucketOf(s.Dates[i])
		if !started || !key.Equal(curKey) {
			if started {
				flush()
			}
			curKey = key
			open = s.Open[i]
			high = s.High[i]
			low = s.Low[i]
			volume = 0
			started = true
		}
		if s.High[i] > high {
			high = s.High[i]
		}
		if s.Low[i] < low {
			low = s.Low[i]
		}
		close = s.Close[i]
		adjClose = s.AdjClose[i]
		volume += s.Volume[i]
	}
	if started {
		flush()
	}

	out.Rets = pctChange(out.AdjClose)
	out.LogRets = logReturns(out.AdjClose)
	return out
}
