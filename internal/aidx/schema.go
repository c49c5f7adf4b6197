package aidx

import (
	"encoding/xml"
)

// XML namespaces used by the airport operations feed
const (
	NamespaceIATA  = "http://www.iata.org/IATA/2007/00"
	NamespaceAirIT = "http://www.airit.com/aidx"
)

// OperationTime TimeType values
const (
	TimeTypeScheduled = "SCT"
	TimeTypeEstimated = "EST"
	TimeTypeActual    = "ACT"
)

// OperationQualifier values marking the touchdown/takeoff event
const (
	QualifierTouchdown = "TDN"
	QualifierTakeoff   = "TKO"
)

// document mirrors IATA_AIDX_FlightLegRS. Repeated elements decode into slices,
// so a feed sending one FlightLeg or one OperationTime yields a slice of length 1.
type document struct {
	XMLName               xml.Name    `xml:"IATA_AIDX_FlightLegRS"`
	TimeStamp             string      `xml:"TimeStamp,attr"`
	TransactionIdentifier string      `xml:"TransactionIdentifier,attr"`
	FlightLegs            []flightLeg `xml:"FlightLeg"`
}

type flightLeg struct {
	LegIdentifier legIdentifier `xml:"LegIdentifier"`
	LegData       legData       `xml:"LegData"`
}

type legIdentifier struct {
	Airline          string `xml:"Airline"`
	FlightNumber     string `xml:"FlightNumber"`
	DepartureAirport string `xml:"DepartureAirport"`
	ArrivalAirport   string `xml:"ArrivalAirport"`
	OriginDate       string `xml:"OriginDate"`
	InternalID       string `xml:"http://www.airit.com/aidx InternalId"`
}

type legData struct {
	PublicStatus   *string         `xml:"PublicStatus"`
	InternalStatus *string         `xml:"http://www.airit.com/aidx InternalStatus"`
	OperationTimes []operationTime `xml:"OperationTime"`
	AircraftInfo   *aircraftInfo   `xml:"AircraftInfo"`
	AirportInfo    *airportInfo    `xml:"http://www.airit.com/aidx AirportInfo"`
}

type operationTime struct {
	OperationQualifier string `xml:"OperationQualifier,attr"`
	TimeType           string `xml:"TimeType,attr"`
	Value              string `xml:",chardata"`
}

type aircraftInfo struct {
	Registration string `xml:"Registration"`
}

type airportInfo struct {
	Airports []airport `xml:"http://www.airit.com/aidx Airport"`
}

type airport struct {
	Code string `xml:"code,attr"`
	Name string `xml:"http://www.airit.com/aidx AirportName"`
}
