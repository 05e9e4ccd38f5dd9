package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

type channelRepository struct{ s *Store }

// Channels 渠道仓储
func (s *Store) Channels() channel.Repository { return &channelRepository{s: s} }

func (r *channelRepository) Create(ctx context.Context, ch *channel.Channel) error {
	return r.s.with(ctx, func(t *tables) error {
		for _, existing := range t.channels {
			if existing.Name == ch.Name {
				return apperrors.NewWithReason(apperrors.ErrCodeDuplicateEntry, "DUPLICATE_CHANNEL", "渠道名称已存在").WithDetail("%s", ch.Name)
			}
		}
		now := time.Now()
		ch.ID = t.next("channels")
		ch.CreatedAt, ch.UpdatedAt = now, now
		cp := *ch
		t.channels[ch.ID] = &cp
		return nil
	})
}

func (r *channelRepository) FindByID(ctx context.Context, id uint) (*channel.Channel, error) {
	var out *channel.Channel
	err := r.s.with(ctx, func(t *tables) error {
		ch, ok := t.channels[id]
		if !ok {
			return channel.ErrChannelNotFound.WithDetail("id=%d", id)
		}
		cp := *ch
		out = &cp
		return nil
	})
	return out, err
}

func (r *channelRepository) ListEnabled(ctx context.Context) ([]*channel.Channel, error) {
	out := []*channel.Channel{}
	err := r.s.with(ctx, func(t *tables) error {
		for _, ch := range t.channels {
			if ch.Enabled {
				cp := *ch
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type listingRepository struct{ s *Store }

// Listings 渠道商品仓储
func (s *Store) Listings() channel.ListingRepository { return &listingRepository{s: s} }

func (r *listingRepository) Create(ctx context.Context, l *channel.Listing) error {
	return r.s.with(ctx, func(t *tables) error {
		for _, existing := range t.listings {
			if existing.ProductID == l.ProductID && existing.ChannelID == l.ChannelID {
				return channel.ErrAlreadyListed.WithDetail("product=%d,channel=%d", l.ProductID, l.ChannelID)
			}
		}
		now := time.Now()
		l.ID = t.next("listings")
		l.CreatedAt, l.UpdatedAt = now, now
		cp := *l
		t.listings[l.ID] = &cp
		return nil
	})
}

func (r *listingRepository) FindByID(ctx context.Context, id uint) (*channel.Listing, error) {
	var out *channel.Listing
	err := r.s.with(ctx, func(t *tables) error {
		l, ok := t.listings[id]
		if !ok {
			return channel.ErrListingNotFound
		}
		cp := *l
		out = &cp
		return nil
	})
	return out, err
}

func (r *listingRepository) LockByID(ctx context.Context, id uint) (*channel.Listing, error) {
	return r.FindByID(ctx, id)
}

func (r *listingRepository) FindByProductAndChannel(ctx context.Context, productID, channelID uint) (*channel.Listing, error) {
	var out *channel.Listing
	err := r.s.with(ctx, func(t *tables) error {
		for _, l := range t.listings {
			if l.ProductID == productID && l.ChannelID == channelID {
				cp := *l
				out = &cp
				return nil
			}
		}
		return channel.ErrListingNotFound
	})
	return out, err
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uint, status channel.ListingStatus) error {
	return r.s.with(ctx, func(t *tables) error {
		l, ok := t.listings[id]
		if !ok {
			return channel.ErrListingNotFound
		}
		l.Status = status
		l.UpdatedAt = time.Now()
		return nil
	})
}

func (r *listingRepository) UpdatePrice(ctx context.Context, in *channel.Listing) error {
	return r.s.with(ctx, func(t *tables) error {
		l, ok := t.listings[in.ID]
		if !ok {
			return channel.ErrListingNotFound
		}
		l.CurrentPrice = in.CurrentPrice
		l.DiscountAmount = in.DiscountAmount
		l.MarkupAmount = in.MarkupAmount
		l.FollowsBasePrice = in.FollowsBasePrice
		l.UpdatedAt = time.Now()
		return nil
	})
}

func (r *listingRepository) ListByProduct(ctx context.Context, productID uint) ([]*channel.Listing, error) {
	out := []*channel.Listing{}
	err := r.s.with(ctx, func(t *tables) error {
		for _, id := range sortedKeys(t.listings) {
			if l := t.listings[id]; l.ProductID == productID {
				cp := *l
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

type historyRepository struct{ s *Store }

// Histories 上架历史仓储
func (s *Store) Histories() channel.HistoryRepository { return &historyRepository{s: s} }

func (r *historyRepository) Create(ctx context.Context, h *channel.ListingHistory) error {
	return r.s.with(ctx, func(t *tables) error {
		h.ID = t.next("histories")
		if h.CreatedAt.IsZero() {
			h.CreatedAt = time.Now()
		}
		cp := *h
		t.histories = append(t.histories, &cp)
		return nil
	})
}

func (r *historyRepository) ListByListing(ctx context.Context, listingID uint) ([]*channel.ListingHistory, error) {
	out := []*channel.ListingHistory{}
	err := r.s.with(ctx, func(t *tables) error {
		for _, h := range t.histories {
			if h.ListingID == listingID {
				cp := *h
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
