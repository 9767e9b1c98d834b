package stream

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Channel identifies a Hyperliquid stream channel.
type Channel string

const (
	ChannelAllMids    Channel = "allMids"
	ChannelL2Book     Channel = "l2Book"
	ChannelTrades     Channel = "trades"
	ChannelUserEvents Channel = "userEvents"

	// Server-side frames handled internally, never dispatched.
	channelSubscriptionResponse = "subscriptionResponse"
	channelPong                 = "pong"
)

// subscribableChannels is the closed set of channel types Subscribe accepts.
var subscribableChannels = map[Channel]bool{
	ChannelAllMids:    true,
	ChannelL2Book:     true,
	ChannelTrades:     true,
	ChannelUserEvents: true,
}

// Message is a decoded inbound frame. The concrete type depends on the
// channel discriminator; callers type-switch on the variant they registered
// a handler for.
type Message interface {
	StreamChannel() Channel
}

// AllMidsMessage carries mid prices for every listed coin.
type AllMidsMessage struct {
	Mids map[string]decimal.Decimal
}

func (AllMidsMessage) StreamChannel() Channel { return ChannelAllMids }

// PriceLevel is one side entry of an order book snapshot.
type PriceLevel struct {
	Price  decimal.Decimal
	Size   decimal.Decimal
	Orders int
}

// L2BookMessage is a two-sided book snapshot for one coin.
type L2BookMessage struct {
	Coin string
	Time int64
	Bids []PriceLevel
	Asks []PriceLevel
}

func (L2BookMessage) StreamChannel() Channel { return ChannelL2Book }

// Trade is a single fill reported on the trades channel.
type Trade struct {
	Coin    string
	Side    string
	Price   decimal.Decimal
	Size    decimal.Decimal
	Time    int64
	Hash    string
	TradeID int64
}

// TradesMessage is a batch of trades for a subscribed coin.
type TradesMessage struct {
	Trades []Trade
}

func (TradesMessage) StreamChannel() Channel { return ChannelTrades }

// UserEventsMessage carries account events (fills, funding, liquidations)
// for the configured address. The payload shape varies per event kind, so it
// is passed through raw for the handler to interpret.
type UserEventsMessage struct {
	Data json.RawMessage
}

func (UserEventsMessage) StreamChannel() Channel { return ChannelUserEvents }

// UnknownMessage is the catch-all for channels without a dedicated variant.
type UnknownMessage struct {
	Channel string
	Data    json.RawMessage
}

func (u UnknownMessage) StreamChannel() Channel { return Channel(u.Channel) }

// envelope is the wire shape of every inbound frame.
type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Channel == "" {
		return env, fmt.Errorf("%w: missing channel field", ErrMalformedMessage)
	}
	return env, nil
}

// decodeMessage turns an envelope into the typed variant for its channel.
func decodeMessage(env envelope) (Message, error) {
	switch Channel(env.Channel) {
	case ChannelAllMids:
		return decodeAllMids(env.Data)
	case ChannelL2Book:
		return decodeL2Book(env.Data)
	case ChannelTrades:
		return decodeTrades(env.Data)
	case ChannelUserEvents:
		return UserEventsMessage{Data: env.Data}, nil
	default:
		return UnknownMessage{Channel: env.Channel, Data: env.Data}, nil
	}
}

func decodeAllMids(data json.RawMessage) (Message, error) {
	var raw struct {
		Mids map[string]string `json:"mids"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: allMids payload: %v", ErrMalformedMessage, err)
	}

	msg := AllMidsMessage{Mids: make(map[string]decimal.Decimal, len(raw.Mids))}
	for coin, mid := range raw.Mids {
		price, err := decimal.NewFromString(mid)
		if err != nil {
			// A single bad price does not invalidate the snapshot.
			continue
		}
		msg.Mids[coin] = price
	}
	return msg, nil
}

func decodeL2Book(data json.RawMessage) (Message, error) {
	var raw struct {
		Coin   string `json:"coin"`
		Time   int64  `json:"time"`
		Levels [][]struct {
			Px string `json:"px"`
			Sz string `json:"sz"`
			N  int    `json:"n"`
		} `json:"levels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: l2Book payload: %v", ErrMalformedMessage, err)
	}
	if len(raw.Levels) < 2 {
		return nil, fmt.Errorf("%w: l2Book payload missing levels", ErrMalformedMessage)
	}

	msg := L2BookMessage{Coin: raw.Coin, Time: raw.Time}
	for side, levels := range raw.Levels[:2] {
		parsed := make([]PriceLevel, 0, len(levels))
		for _, lvl := range levels {
			price, err := decimal.NewFromString(lvl.Px)
			if err != nil {
				continue
			}
			size, err := decimal.NewFromString(lvl.Sz)
			if err != nil {
				continue
			}
			parsed = append(parsed, PriceLevel{Price: price, Size: size, Orders: lvl.N})
		}
		if side == 0 {
			msg.Bids = parsed
		} else {
			msg.Asks = parsed
		}
	}
	return msg, nil
}

func decodeTrades(data json.RawMessage) (Message, error) {
	var raw []struct {
		Coin string `json:"coin"`
		Side string `json:"side"`
		Px   string `json:"px"`
		Sz   string `json:"sz"`
		Time int64  `json:"time"`
		Hash string `json:"hash"`
		Tid  int64  `json:"tid"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: trades payload: %v", ErrMalformedMessage, err)
	}

	msg := TradesMessage{Trades: make([]Trade, 0, len(raw))}
	for _, t := range raw {
		price, err := decimal.NewFromString(t.Px)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(t.Sz)
		if err != nil {
			continue
		}
		msg.Trades = append(msg.Trades, Trade{
			Coin:    t.Coin,
			Side:    t.Side,
			Price:   price,
			Size:    size,
			Time:    t.Time,
			Hash:    t.Hash,
			TradeID: t.Tid,
		})
	}
	return msg, nil
}

// subscriptionPayload is the type-specific half of a subscribe command.
type subscriptionPayload struct {
	Type Channel `json:"type"`
	Coin string  `json:"coin,omitempty"`
	User string  `json:"user,omitempty"`
}

// commandMessage is the outbound wire shape for subscribe/unsubscribe/ping.
type commandMessage struct {
	Method       string               `json:"method"`
	Subscription *subscriptionPayload `json:"subscription,omitempty"`
}

// buildSubscription validates the channel type and parameters and produces
// the payload that, resent verbatim, reproduces the same server-side
// subscription.
func buildSubscription(channel Channel, params map[string]string, userAddress string) (*subscriptionPayload, error) {
	if !subscribableChannels[channel] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	payload := &subscriptionPayload{Type: channel}

	switch channel {
	case ChannelL2Book, ChannelTrades:
		coin := params["coin"]
		if coin == "" {
			return nil, fmt.Errorf("%w: %s requires a coin parameter", ErrUnknownChannel, channel)
		}
		payload.Coin = coin
	case ChannelUserEvents:
		if userAddress == "" {
			return nil, fmt.Errorf("%w: userEvents requires a configured address", ErrUnknownChannel)
		}
		payload.User = userAddress
	}

	return payload, nil
}

func marshalSubscribe(payload *subscriptionPayload) ([]byte, error) {
	return json.Marshal(commandMessage{Method: "subscribe", Subscription: payload})
}

// unsubscribeFor rewrites a stored subscribe wire message into the matching
// unsubscribe command, reusing the original subscription payload verbatim.
func unsubscribeFor(subscribeWire []byte) ([]byte, error) {
	var cmd commandMessage
	if err := json.Unmarshal(subscribeWire, &cmd); err != nil {
		return nil, fmt.Errorf("%w: stored wire message: %v", ErrMalformedMessage, err)
	}
	cmd.Method = "unsubscribe"
	return json.Marshal(cmd)
}

func pingPayload() []byte {
	return []byte(`{"method":"ping"}`)
}
