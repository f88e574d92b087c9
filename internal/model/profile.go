package model

// Channel identifies an outbound notification channel.
type Channel string

const (
	ChannelWhatsApp Channel = "WhatsApp"
	ChannelSMS      Channel = "SMS"
	ChannelNone     Channel = "None"
)

// TradespersonProfile is a read-only, per-request copy of the record store's
// row describing one tradesperson's identity and contact preferences.
//
// PreferredChannel carries the raw stored value; channel selection trims and
// lower-cases it before comparison. The required address for the selected
// channel is validated at the routing boundary, not inside send logic.
type TradespersonProfile struct {
	RecordID         string `json:"record_id"`
	BusinessName     string `json:"business_name"`
	PreferredChannel string `json:"preferred_channel,omitempty"`
	WhatsAppNumber   string `json:"whatsapp_number,omitempty"`
	MobileNumber     string `json:"mobile_number,omitempty"`
	ExternalID       string `json:"external_id,omitempty"`
}
