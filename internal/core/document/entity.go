package document

import "time"

// Document は休暇申請に添付された書類です。Content は Get でのみ読み込まれます。
type Document struct {
	ID             string
	LeaveRequestID string
	FileName       string
	ContentType    string
	SizeBytes      int64
	UploadedBy     string
	CreatedAt      time.Time
	Content        []byte
}
