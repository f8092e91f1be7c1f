package models

import (
	"doctor-portal/common/caselogic"
)

// CasePriority 病例优先级（创建时确定，客户端只读）
type CasePriority string

const (
	PriorityLow    CasePriority = "Low"
	PriorityMedium CasePriority = "Medium"
	PriorityHigh   CasePriority = "High"
	PriorityUrgent CasePriority = "Urgent"
)

// PatientVitals 生命体征（核心逻辑不读取）
type PatientVitals struct {
	BloodPressure    string   `json:"bloodPressure,omitempty"`
	HeartRate        *float64 `json:"heartRate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	RespiratoryRate  *float64 `json:"respiratoryRate,omitempty"`
	OxygenSaturation *float64 `json:"oxygenSaturation,omitempty"`
	Weight           *float64 `json:"weight,omitempty"`
	Height           *float64 `json:"height,omitempty"`
	BMI              *float64 `json:"bmi,omitempty"`
	BloodGlucose     *float64 `json:"bloodGlucose,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

// Medication 处方中的一项药品
// DrugType/IsOTC 为派生字段，每次提交前按 Name 重新计算
type Medication struct {
	ID           string             `json:"id,omitempty"`
	Name         string             `json:"name"`
	Dosage       string             `json:"dosage"`
	Frequency    string             `json:"frequency"`
	Duration     string             `json:"duration"`
	Quantity     *int               `json:"quantity,omitempty"`
	Instructions string             `json:"instructions,omitempty"`
	DrugType     caselogic.DrugType `json:"drugType"`
	IsOTC        bool               `json:"isOTC"`
}

// Classify 按药名重新计算分类
func (m *Medication) Classify() {
	c := caselogic.ClassifyDrug(m.Name)
	m.DrugType = c.Type
	m.IsOTC = c.IsOTC
}

// Prescription 处方
type Prescription struct {
	ID           string       `json:"id,omitempty"`
	Medications  []Medication `json:"medications"`
	Instructions string       `json:"instructions,omitempty"`
	FollowUpDate string       `json:"followUpDate,omitempty"`
	CreatedAt    *Timestamp   `json:"createdAt,omitempty"`
}

// Case 一次患者会诊请求
// Status/DoctorID 的权威值在后端，客户端只读取并据此门控操作。
type Case struct {
	ID              string               `json:"id"`
	CaseNumber      string               `json:"caseNumber"`
	PatientName     string               `json:"patientName"`
	PatientAge      *int                 `json:"patientAge,omitempty"`
	PatientGender   string               `json:"patientGender,omitempty"`
	PatientPhone    string               `json:"patientPhone,omitempty"`
	PatientEmail    string               `json:"patientEmail,omitempty"`
	Status          caselogic.CaseStatus `json:"status"`
	Priority        CasePriority         `json:"priority"`
	PMVID           string               `json:"pmvId"`
	PMVName         string               `json:"pmvName,omitempty"`
	PMVBusinessName string               `json:"pmvBusinessName,omitempty"`
	DoctorID        string               `json:"doctorId,omitempty"`
	DoctorName      string               `json:"doctorName,omitempty"`
	Symptoms        string               `json:"symptoms"`
	SymptomsDetails []string             `json:"symptomsDetails,omitempty"`
	Vitals          *PatientVitals       `json:"vitals,omitempty"`
	PMVNotes        string               `json:"pmvNotes,omitempty"`
	Diagnosis       string               `json:"diagnosis,omitempty"`
	DoctorAdvice    string               `json:"doctorAdvice,omitempty"`
	Prescription    *Prescription        `json:"prescription,omitempty"`
	ResponseTime    *float64             `json:"responseTime,omitempty"`

	CreatedAt            Timestamp  `json:"createdAt"`
	UpdatedAt            *Timestamp `json:"updatedAt,omitempty"`
	AssignedAt           *Timestamp `json:"assignedAt,omitempty"`
	DiagnosisSubmittedAt *Timestamp `json:"diagnosisSubmittedAt,omitempty"`
	DiagnosisUpdatedAt   *Timestamp `json:"diagnosisUpdatedAt,omitempty"`
	CompletedAt          *Timestamp `json:"completedAt,omitempty"`
}

// GateState 门控所需字段
func (c *Case) GateState() caselogic.CaseState {
	return caselogic.CaseState{Status: c.Status, DoctorID: c.DoctorID}
}

// SubmitDiagnosisRequest 提交/修改诊断
type SubmitDiagnosisRequest struct {
	CaseID                   string       `json:"caseId"`
	Diagnosis                string       `json:"diagnosis"`
	Advice                   string       `json:"advice"`
	Medications              []Medication `json:"medications"`
	PrescriptionInstructions string       `json:"prescriptionInstructions,omitempty"`
	FollowUpRequired         bool         `json:"followUpRequired"`
	FollowUpDate             string       `json:"followUpDate,omitempty"`
	ReferralRequired         bool         `json:"referralRequired"`
	ReferralNotes            string       `json:"referralNotes,omitempty"`
}

// CaseListParams 病例列表查询参数
type CaseListParams struct {
	Page     int
	PageSize int
	Status   caselogic.CaseStatus
}

// DoctorDashboardStats 医生工作台统计（后端计算）
type DoctorDashboardStats struct {
	PendingCases        int     `json:"pendingCases"`
	InReviewCases       int     `json:"inReviewCases"`
	CompletedToday      int     `json:"completedToday"`
	CompletedThisWeek   int     `json:"completedThisWeek"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	SLAComplianceRate   float64 `json:"slaComplianceRate"`
	TotalCasesHandled   int     `json:"totalCasesHandled"`
}

// SLAMetrics 后端 SLA 指标
type SLAMetrics struct {
	TotalCases          int     `json:"totalCases"`
	WithinSLA           int     `json:"withinSLA"`
	AtRisk              int     `json:"atRisk"`
	Breached            int     `json:"breached"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	TargetResponseTime  float64 `json:"targetResponseTime"`
}
