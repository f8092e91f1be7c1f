package caselogic

import "strings"

// DrugType 药品分类
type DrugType string

const (
	DrugOTC              DrugType = "OTC"
	DrugPrescriptionOnly DrugType = "PrescriptionOnly"
	DrugControlled       DrugType = "Controlled"
)

// OTCDrugs 非处方药参考列表（移动端与 Web 端列表的并集）
var OTCDrugs = []string{
	"Paracetamol", "Ibuprofen", "Aspirin", "Acetaminophen", "Antacid",
	"Vitamin C", "Vitamin D", "Multivitamins", "Oral Rehydration Salts",
	"Cough Syrup", "Loratadine", "Cetirizine", "Diphenhydramine",
	"Omeprazole", "Famotidine", "Loperamide", "Hydrocortisone Cream",
	"Calamine Lotion", "Saline Nasal Spray", "Throat Lozenges",
}

// ControlledDrugs 管制药品参考列表
var ControlledDrugs = []string{
	"Codeine", "Tramadol", "Diazepam", "Alprazolam", "Morphine",
	"Oxycodone", "Fentanyl", "Methylphenidate", "Amphetamine", "Phenobarbital",
}

// DrugClassification 分类结果
type DrugClassification struct {
	Type  DrugType `json:"drugType"`
	IsOTC bool     `json:"isOTC"`
}

// DrugClassifier 基于两个参考列表做子串匹配（忽略大小写）
// 优先级：Controlled > OTC > PrescriptionOnly
type DrugClassifier struct {
	controlled []string
	otc        []string
}

// NewDrugClassifier 创建分类器；列表在创建时统一归一化
func NewDrugClassifier(controlled, otc []string) *DrugClassifier {
	return &DrugClassifier{
		controlled: normalizeAll(controlled),
		otc:        normalizeAll(otc),
	}
}

var defaultDrugClassifier = NewDrugClassifier(ControlledDrugs, OTCDrugs)

// ClassifyDrug 使用默认参考列表分类
func ClassifyDrug(name string) DrugClassification {
	return defaultDrugClassifier.Classify(name)
}

// Classify 对自由输入的药名分类。未匹配任何列表时返回 PrescriptionOnly，不会降级为 OTC。
func (c *DrugClassifier) Classify(name string) DrugClassification {
	n := normalizeDrugName(name)
	if n == "" {
		return DrugClassification{Type: DrugPrescriptionOnly}
	}
	if containsAny(n, c.controlled) {
		return DrugClassification{Type: DrugControlled}
	}
	if containsAny(n, c.otc) {
		return DrugClassification{Type: DrugOTC, IsOTC: true}
	}
	return DrugClassification{Type: DrugPrescriptionOnly}
}

func normalizeDrugName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if n := normalizeDrugName(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(name string, list []string) bool {
	for _, d := range list {
		if strings.Contains(name, d) {
			return true
		}
	}
	return false
}
