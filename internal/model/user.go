package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User is the read-only slice of the platform user table the engine needs:
// identity for attempt snapshots and the role carried in tokens.
// swagger:model User
type User struct {
	BaseModel
	Name  string   `gorm:"size:100;not null" json:"name"`
	Email string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role  UserRole `gorm:"size:20;not null" json:"role"`
}

func (User) TableName() string {
	return "users"
}

// StudentIdentity 学生身份快照（创建答题记录时写入，之后不随资料修改而变化）
type StudentIdentity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CourseEnrollment struct {
	BaseModel
	CourseID  uint `gorm:"not null;uniqueIndex:idx_course_student,priority:1" json:"courseId"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_course_student,priority:2;index" json:"studentId"`
}

func (CourseEnrollment) TableName() string {
	return "course_enrollments"
}

type BatchMember struct {
	BaseModel
	BatchID   uint `gorm:"not null;uniqueIndex:idx_batch_student,priority:1" json:"batchId"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_batch_student,priority:2;index" json:"studentId"`
}

func (BatchMember) TableName() string {
	return "batch_members"
}
