package stake

// Amount is a staked value and the block height from which it is eligible.
type Amount struct {
	Value       uint64 `json:"value"`
	Eligibility uint64 `json:"eligibility"`
}

// Data is the stake contract's record for one stake key, as the state
// client returns it.
type Data struct {
	Amount  *Amount `json:"amount,omitempty"` // Nil when nothing is staked
	Reward  uint64  `json:"reward"`
	Counter uint64  `json:"counter"`
}

// Info is the stake state presented to the user.
type Info struct {
	HasKey      bool    `json:"has_key"`
	HasStaked   bool    `json:"has_staked"`
	Amount      *uint64 `json:"amount,omitempty"`
	Eligibility *uint64 `json:"eligibility,omitempty"`
	Reward      *uint64 `json:"reward,omitempty"`
	Counter     *uint64 `json:"counter,omitempty"`
}

// InfoFromData summarizes d. A nil d means the key is unknown to the
// contract.
func InfoFromData(d *Data) Info {
	if d == nil {
		return Info{}
	}
	reward := d.Reward
	counter := d.Counter
	info := Info{HasKey: true, Reward: &reward, Counter: &counter}
	if d.Amount != nil {
		value := d.Amount.Value
		eligibility := d.Amount.Eligibility
		info.HasStaked = true
		info.Amount = &value
		info.Eligibility = &eligibility
	}
	return info
}
