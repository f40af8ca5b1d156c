package statefold

import "context"

// Arity helpers for projected subscriptions. Each OnEachN selects N
// named fields from the state; the names feed the subscription id, the
// selectors feed the projection. Extend by adding the next TupleN and
// OnEachN pair.

type Tuple2[A, B any] struct {
	A A
	B B
}

type Tuple3[A, B, C any] struct {
	A A
	B B
	C C
}

type Tuple4[A, B, C, D any] struct {
	A A
	B B
	C C
	D D
}

type Tuple5[A, B, C, D, E any] struct {
	A A
	B B
	C C
	D D
	E E
}

type Tuple6[A, B, C, D, E, F any] struct {
	A A
	B B
	C C
	D D
	E E
	F F
}

type Tuple7[A, B, C, D, E, F, G any] struct {
	A A
	B B
	C C
	D D
	E E
	F F
	G G
}

// OnEach1 subscribes to one projected field.
func OnEach1[S, A any](cfg *Config[S], nameA string, selA func(S) A, action func(context.Context, A), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, nameA, selA, action, opts)
}

// OnEach2 subscribes to two projected fields; the action runs when the
// projected pair changes.
func OnEach2[S, A, B any](cfg *Config[S], nameA string, selA func(S) A, nameB string, selB func(S) B, action func(context.Context, A, B), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, nameA+","+nameB,
		func(s S) Tuple2[A, B] {
			return Tuple2[A, B]{selA(s), selB(s)}
		},
		func(ctx context.Context, t Tuple2[A, B]) {
			action(ctx, t.A, t.B)
		}, opts)
}

// OnEach3 subscribes to three projected fields.
func OnEach3[S, A, B, C any](cfg *Config[S], nameA string, selA func(S) A, nameB string, selB func(S) B, nameC string, selC func(S) C, action func(context.Context, A, B, C), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, nameA+","+nameB+","+nameC,
		func(s S) Tuple3[A, B, C] {
			return Tuple3[A, B, C]{selA(s), selB(s), selC(s)}
		},
		func(ctx context.Context, t Tuple3[A, B, C]) {
			action(ctx, t.A, t.B, t.C)
		}, opts)
}

// OnEach4 subscribes to four projected fields.
func OnEach4[S, A, B, C, D any](cfg *Config[S], nameA string, selA func(S) A, nameB string, selB func(S) B, nameC string, selC func(S) C, nameD string, selD func(S) D, action func(context.Context, A, B, C, D), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, nameA+","+nameB+","+nameC+","+nameD,
		func(s S) Tuple4[A, B, C, D] {
			return Tuple4[A, B, C, D]{selA(s), selB(s), selC(s), selD(s)}
		},
		func(ctx context.Context, t Tuple4[A, B, C, D]) {
			action(ctx, t.A, t.B, t.C, t.D)
		}, opts)
}

// OnEach5 subscribes to five projected fields.
func OnEach5[S, A, B, C, D, E any](cfg *Config[S], nameA string, selA func(S) A, nameB string, selB func(S) B, nameC string, selC func(S) C, nameD string, selD func(S) D, nameE string, selE func(S) E, action func(context.Context, A, B, C, D, E), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, nameA+","+nameB+","+nameC+","+nameD+","+nameE,
		func(s S) Tuple5[A, B, C, D, E] {
			return Tuple5[A, B, C, D, E]{selA(s), selB(s), selC(s), selD(s), selE(s)}
		},
		func(ctx context.Context, t Tuple5[A, B, C, D, E]) {
			action(ctx, t.A, t.B, t.C, t.D, t.E)
		}, opts)
}

// OnEach6 subscribes to six projected fields.
func OnEach6[S, A, B, C, D, E, F any](cfg *Config[S], nameA string, selA func(S) A, nameB string, selB func(S) B, nameC string, selC func(S) C, nameD string, selD func(S) D, nameE string, selE func(S) E, nameF string, selF func(S) F, action func(context.Context, A, B, C, D, E, F), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, nameA+","+nameB+","+nameC+","+nameD+","+nameE+","+nameF,
		func(s S) Tuple6[A, B, C, D, E, F] {
			return Tuple6[A, B, C, D, E, F]{selA(s), selB(s), selC(s), selD(s), selE(s), selF(s)}
		},
		func(ctx context.Context, t Tuple6[A, B, C, D, E, F]) {
			action(ctx, t.A, t.B, t.C, t.D, t.E, t.F)
		}, opts)
}

// OnEach7 subscribes to seven projected fields.
func OnEach7[S, A, B, C, D, E, F, G any](cfg *Config[S], nameA string, selA func(S) A, nameB string, selB func(S) B, nameC string, selC func(S) C, nameD string, selD func(S) D, nameE string, selE func(S) E, nameF string, selF func(S) F, nameG string, selG func(S) G, action func(context.Context, A, B, C, D, E, F, G), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, nameA+","+nameB+","+nameC+","+nameD+","+nameE+","+nameF+","+nameG,
		func(s S) Tuple7[A, B, C, D, E, F, G] {
			return Tuple7[A, B, C, D, E, F, G]{selA(s), selB(s), selC(s), selD(s), selE(s), selF(s), selG(s)}
		},
		func(ctx context.Context, t Tuple7[A, B, C, D, E, F, G]) {
			action(ctx, t.A, t.B, t.C, t.D, t.E, t.F, t.G)
		}, opts)
}
