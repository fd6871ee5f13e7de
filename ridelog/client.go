package ridelog

import (
	"context"
	"time"

	"github.com/calvinmclean/babyapi"

	"github.com/calvinmclean/gearshift"
)

type Client struct {
	client *babyapi.Client[*Shift]
}

func NewClient(addr string) *Client {
	return &Client{client: babyapi.NewClient[*Shift](addr, BasePath)}
}

// Record stores the status message. It returns the ID of the new record
func (c *Client) Record(ctx context.Context, m gearshift.Message, now time.Time) (string, error) {
	resp, err := c.client.Post(ctx, NewShift(m, now))
	if err != nil {
		return "", err
	}

	return resp.Data.GetID(), nil
}

func (c *Client) Get(ctx context.Context, id string) (*Shift, error) {
	resp, err := c.client.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return resp.Data, nil
}
