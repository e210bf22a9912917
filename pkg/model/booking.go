package model

import (
	"time"
)

type ConsultantType string

const (
	CareerGuidance         ConsultantType = "CAREER_GUIDANCE"
	ResumeReview           ConsultantType = "RESUME_REVIEW"
	InterviewPreparation   ConsultantType = "INTERVIEW_PREPARATION"
	CollegeAdmission       ConsultantType = "COLLEGE_ADMISSION"
	StudyAbroad            ConsultantType = "STUDY_ABROAD"
	SkillDevelopment       ConsultantType = "SKILL_DEVELOPMENT"
	JobPlacement           ConsultantType = "JOB_PLACEMENT"
	HigherEducation        ConsultantType = "HIGHER_EDUCATION"
	PersonalityDevelopment ConsultantType = "PERSONALITY_DEVELOPMENT"
)

var ConsultantTypes = []ConsultantType{
	CareerGuidance,
	ResumeReview,
	InterviewPreparation,
	CollegeAdmission,
	StudyAbroad,
	SkillDevelopment,
	JobPlacement,
	HigherEducation,
	PersonalityDevelopment,
}

func (c ConsultantType) Valid() bool {
	for _, t := range ConsultantTypes {
		if t == c {
			return true
		}
	}
	return false
}

type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusProcessing BookingStatus = "PROCESSING"
	StatusSuccess    BookingStatus = "SUCCESS"
	StatusFailed     BookingStatus = "FAILED"
	StatusCompleted  BookingStatus = "COMPLETED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailed, StatusCompleted:
		return true
	}
	return false
}

// Booking mirrors the backend record. Amount is in minor currency units.
type Booking struct {
	ID              int            `json:"id"`
	StudentID       int            `json:"studentId"`
	ConsultantType  ConsultantType `json:"consultantType"`
	Details         string         `json:"details"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Status          BookingStatus  `json:"status"`
	RazorpayOrderID string         `json:"razorpayOrderId,omitempty"`
	Student         *User          `json:"student,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type CreateBookingRequest struct {
	ConsultantType ConsultantType `json:"consultantType" validate:"required,consultant_type"`
	Details        string         `json:"details" validate:"required,min=10,max=1000"`
	Amount         int64          `json:"amount" validate:"required,gt=0"`
}

type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" validate:"required,booking_status"`
}

// BookingFilter selects admin booking listings. Zero fields are not sent.
type BookingFilter struct {
	Status         BookingStatus
	ConsultantType ConsultantType
	Search         string
	From           *time.Time
	To             *time.Time
	Page           int
	Limit          int
}

type BookingList struct {
	Bookings   []Booking  `json:"bookings"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
