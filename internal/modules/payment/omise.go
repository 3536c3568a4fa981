package payment

import (
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// omiseClient adapts *omise.Client to provider.
type omiseClient struct {
	c *omise.Client
}

func newOmiseClient(publicKey, secretKey string) (*omiseClient, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	return &omiseClient{c: c}, nil
}

func (o *omiseClient) CreateSource(op *operations.CreateSource) (*omise.Source, error) {
	src := &omise.Source{}
	if err := o.c.Do(src, op); err != nil {
		return nil, err
	}
	return src, nil
}

func (o *omiseClient) CreateCharge(op *operations.CreateCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := o.c.Do(ch, op); err != nil {
		return nil, err
	}
	return ch, nil
}

func (o *omiseClient) RetrieveEvent(eventID string) (*omise.Event, error) {
	ev := &omise.Event{}
	if err := o.c.Do(ev, &operations.RetrieveEvent{EventID: eventID}); err != nil {
		return nil, err
	}
	return ev, nil
}
