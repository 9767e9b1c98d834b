package stream

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Wire messages", func() {
	Describe("buildSubscription", func() {
		It("builds an allMids payload with no parameters", func() {
			payload, err := buildSubscription(ChannelAllMids, nil, "")
			Expect(err).ToNot(HaveOccurred())

			wire, err := marshalSubscribe(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(wire)).To(Equal(`{"method":"subscribe","subscription":{"type":"allMids"}}`))
		})

		It("builds coin-scoped payloads for l2Book and trades", func() {
			payload, err := buildSubscription(ChannelL2Book, map[string]string{"coin": "BTC"}, "")
			Expect(err).ToNot(HaveOccurred())

			wire, err := marshalSubscribe(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(wire)).To(Equal(`{"method":"subscribe","subscription":{"type":"l2Book","coin":"BTC"}}`))

			payload, err = buildSubscription(ChannelTrades, map[string]string{"coin": "ETH"}, "")
			Expect(err).ToNot(HaveOccurred())

			wire, err = marshalSubscribe(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(wire)).To(Equal(`{"method":"subscribe","subscription":{"type":"trades","coin":"ETH"}}`))
		})

		It("requires a coin for l2Book", func() {
			_, err := buildSubscription(ChannelL2Book, nil, "")
			Expect(err).To(MatchError(ErrUnknownChannel))
		})

		It("requires a configured address for userEvents", func() {
			_, err := buildSubscription(ChannelUserEvents, nil, "")
			Expect(err).To(MatchError(ErrUnknownChannel))

			payload, err := buildSubscription(ChannelUserEvents, nil, "0xabc")
			Expect(err).ToNot(HaveOccurred())
			Expect(payload.User).To(Equal("0xabc"))
		})

		It("rejects channel types outside the subscribable set", func() {
			_, err := buildSubscription(Channel("orderUpdates"), nil, "")
			Expect(err).To(MatchError(ErrUnknownChannel))
		})
	})

	Describe("unsubscribeFor", func() {
		It("reuses the stored subscription payload verbatim", func() {
			wire, err := unsubscribeFor([]byte(`{"method":"subscribe","subscription":{"type":"trades","coin":"BTC"}}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(wire)).To(Equal(`{"method":"unsubscribe","subscription":{"type":"trades","coin":"BTC"}}`))
		})

		It("fails on an unparseable stored message", func() {
			_, err := unsubscribeFor([]byte(`{broken`))
			Expect(err).To(MatchError(ErrMalformedMessage))
		})
	})

	Describe("pingPayload", func() {
		It("matches the keepalive wire format", func() {
			Expect(string(pingPayload())).To(Equal(`{"method":"ping"}`))
		})
	})

	Describe("decodeEnvelope", func() {
		It("fails on invalid JSON", func() {
			_, err := decodeEnvelope([]byte(`garbage`))
			Expect(err).To(MatchError(ErrMalformedMessage))
		})

		It("fails when the channel field is missing", func() {
			_, err := decodeEnvelope([]byte(`{"data":{}}`))
			Expect(err).To(MatchError(ErrMalformedMessage))
		})
	})

	Describe("decodeMessage", func() {
		It("decodes allMids and skips unparseable prices", func() {
			msg, err := decodeMessage(envelope{
				Channel: "allMids",
				Data:    json.RawMessage(`{"mids":{"BTC":"50000.5","BAD":"not-a-number"}}`),
			})
			Expect(err).ToNot(HaveOccurred())

			mids := msg.(AllMidsMessage)
			Expect(mids.Mids).To(HaveLen(1))
			Expect(mids.Mids["BTC"]).To(Equal(decimal.RequireFromString("50000.5")))
		})

		It("decodes an l2Book snapshot into bids and asks", func() {
			msg, err := decodeMessage(envelope{
				Channel: "l2Book",
				Data: json.RawMessage(`{
					"coin": "BTC",
					"time": 1700000000000,
					"levels": [
						[{"px":"49999.5","sz":"1.5","n":3}],
						[{"px":"50000.5","sz":"0.75","n":2}]
					]
				}`),
			})
			Expect(err).ToNot(HaveOccurred())

			book := msg.(L2BookMessage)
			Expect(book.Coin).To(Equal("BTC"))
			Expect(book.Bids).To(HaveLen(1))
			Expect(book.Asks).To(HaveLen(1))
			Expect(book.Bids[0].Price).To(Equal(decimal.RequireFromString("49999.5")))
			Expect(book.Bids[0].Orders).To(Equal(3))
			Expect(book.Asks[0].Size).To(Equal(decimal.RequireFromString("0.75")))
		})

		It("fails on an l2Book snapshot without both sides", func() {
			_, err := decodeMessage(envelope{
				Channel: "l2Book",
				Data:    json.RawMessage(`{"coin":"BTC","levels":[[]]}`),
			})
			Expect(err).To(MatchError(ErrMalformedMessage))
		})

		It("decodes a trades batch", func() {
			msg, err := decodeMessage(envelope{
				Channel: "trades",
				Data:    json.RawMessage(`[{"coin":"ETH","side":"A","px":"3000.25","sz":"2","time":1700000000001,"hash":"0xbeef","tid":7}]`),
			})
			Expect(err).ToNot(HaveOccurred())

			batch := msg.(TradesMessage)
			Expect(batch.Trades).To(HaveLen(1))
			Expect(batch.Trades[0].Side).To(Equal("A"))
			Expect(batch.Trades[0].Price).To(Equal(decimal.RequireFromString("3000.25")))
		})

		It("passes userEvents payloads through raw", func() {
			msg, err := decodeMessage(envelope{
				Channel: "userEvents",
				Data:    json.RawMessage(`{"fills":[{"coin":"BTC"}]}`),
			})
			Expect(err).ToNot(HaveOccurred())

			events := msg.(UserEventsMessage)
			Expect(string(events.Data)).To(ContainSubstring("fills"))
		})

		It("falls back to the catch-all variant for unknown channels", func() {
			msg, err := decodeMessage(envelope{
				Channel: "orderUpdates",
				Data:    json.RawMessage(`{"anything":true}`),
			})
			Expect(err).ToNot(HaveOccurred())

			unknown := msg.(UnknownMessage)
			Expect(unknown.Channel).To(Equal("orderUpdates"))
			Expect(unknown.StreamChannel()).To(Equal(Channel("orderUpdates")))
		})
	})
})
