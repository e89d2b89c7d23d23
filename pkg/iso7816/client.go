package iso7816

import "fmt"

// Transmitter abstracts the physical card connection. Both a CCID chip
// card slot and a PC/SC *scard.Card satisfy it.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card. It resolves
// the ISO 7816-3 transport behaviours that T=0 cards expose to the
// application layer:
//
//  1. "61 XX" (Response Available): the card indicates that XX bytes are
//     waiting; the client issues GET RESPONSE and appends the retrieved
//     bytes to the data already received.
//  2. "6C XX" (Wrong Length): the card rejects the expected length (Le)
//     and suggests XX; the client re-sends the command with Le = XX.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits a command and handles protocol logic (61XX, 6CXX),
// returning the fully assembled response.
func (c *Client) Send(cmd *CommandAPDU) (*ResponseAPDU, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(raw)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}

	resp, err := ParseResponse(rawResp)
	if err != nil {
		return nil, err
	}

	sw1 := resp.Status.SW1()
	sw2 := resp.Status.SW2()

	// Case 61XX: more data available, fetch it on the same logical channel.
	if sw1 == 0x61 {
		ne := int(sw2)
		if ne == 0 {
			ne = MaxShortLe
		}
		getResp := &CommandAPDU{Cla: cmd.Cla, Ins: INS_GET_RESPONSE, Ne: ne}

		sub, err := c.Send(getResp)
		if err != nil {
			return nil, err
		}

		sub.Data = append(append([]byte(nil), resp.Data...), sub.Data...)
		return sub, nil
	}

	// Case 6CXX: re-issue the original command with the corrected Le.
	// Clone to avoid mutating the caller's command.
	if sw1 == 0x6C {
		retry := *cmd
		retry.Ne = int(sw2)
		return c.Send(&retry)
	}

	return resp, nil
}
