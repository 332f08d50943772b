package formevents

const (
	TopicName              = "paymentform"
	paymentFormSavedName   = TopicName + ".saved"
	paymentFormDeletedName = TopicName + ".deleted"
)

type PaymentFormSaved struct {
	UID                 string
	Handle              string
	PreviousHandle      string
	Name                string
	Currency            string
	EnableSubscriptions bool
	Created             bool
}

func (e PaymentFormSaved) GetEventTypeName() string {
	return paymentFormSavedName
}

func (e PaymentFormSaved) GetAggregateName() string {
	return e.Handle
}

type PaymentFormDeleted struct {
	UID    string
	Handle string
}

func (e PaymentFormDeleted) GetEventTypeName() string {
	return paymentFormDeletedName
}

func (e PaymentFormDeleted) GetAggregateName() string {
	return e.Handle
}
