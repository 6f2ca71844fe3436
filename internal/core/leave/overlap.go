package leave

import (
	"context"
	"sort"
	"strings"
	"time"
)

// OverlapDetector は社員の既存申請との期間重複を判定します。
type OverlapDetector struct {
	requests RequestRepository
}

// NewOverlapDetector は OverlapDetector を生成します。
func NewOverlapDetector(requests RequestRepository) *OverlapDetector {
	return &OverlapDetector{requests: requests}
}

// FindOverlapping は [start, end] と重なる PENDING または APPROVED の申請を返します。
// 休暇区分と半休の有無は考慮しません。excludeID が空でなければその申請を除外します。
func (d *OverlapDetector) FindOverlapping(ctx context.Context, employeeID string, start, end time.Time, excludeID string) ([]*Request, error) {
	start = DateOnly(start)
	end = DateOnly(end)

	candidates, err := d.requests.FindOverlapping(ctx, OverlapQuery{
		EmployeeID: employeeID,
		StartDate:  start,
		EndDate:    end,
		ExcludeID:  excludeID,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*Request, 0, len(candidates))
	for _, req := range candidates {
		if req.EmployeeID != employeeID || !req.Status.Blocking() {
			continue
		}
		if excludeID != "" && req.ID == excludeID {
			continue
		}
		if !req.Overlaps(start, end) {
			continue
		}
		result = append(result, req)
	}
	return result, nil
}

// Check は重複する申請が存在する場合に OverlappingRequestError を返します。
func (d *OverlapDetector) Check(ctx context.Context, employeeID string, start, end time.Time, excludeID string) error {
	conflicts, err := d.FindOverlapping(ctx, employeeID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return &OverlappingRequestError{ConflictingIDs: ids}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
