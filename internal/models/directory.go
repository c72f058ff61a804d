package models

// Nurse and Client are read-only records from the external directory
// service, consumed only to widen search matching and for display.

type Nurse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Registration string `json:"registration"`
	Phone        string `json:"phone"`
}

type Client struct {
	ID            int64  `json:"id"`
	PatientName   string `json:"patient_name"`
	RequestorName string `json:"requestor_name"`
	Phone         string `json:"phone"`
	City          string `json:"city"`
}
