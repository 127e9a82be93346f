package docview

import (
	"context"

	"github.com/vk/formrun/internal/formtree"
)

// The instance operations below run the instance manager with updates
// locked and flush the view on unlock, so new instances get their init
// activities and the calculations over the run are refreshed.

// AddInstance appends an instance to the run of im.
func (v *View) AddInstance(ctx context.Context, im formtree.NodeID, bind bool) (formtree.NodeID, error) {
	v.LockUpdate()
	inst, err := v.im.AddInstance(ctx, im, bind)
	v.unlockStructural(ctx, err)
	if err != nil {
		return formtree.None, err
	}
	return inst, nil
}

// InsertInstance inserts an instance at index in the run of im.
func (v *View) InsertInstance(ctx context.Context, im formtree.NodeID, index int, bind bool) (formtree.NodeID, error) {
	v.LockUpdate()
	inst, err := v.im.InsertInstance(ctx, im, index, bind)
	v.unlockStructural(ctx, err)
	if err != nil {
		return formtree.None, err
	}
	return inst, nil
}

// RemoveInstance removes the instance at index from the run of im.
func (v *View) RemoveInstance(ctx context.Context, im formtree.NodeID, index int) error {
	v.LockUpdate()
	err := v.im.RemoveInstance(ctx, im, index)
	v.unlockStructural(ctx, err)
	return err
}

// MoveInstance moves the instance at from to to in the run of im.
func (v *View) MoveInstance(ctx context.Context, im formtree.NodeID, from, to int) error {
	v.LockUpdate()
	err := v.im.MoveInstance(ctx, im, from, to)
	v.unlockStructural(ctx, err)
	return err
}

// SetInstances grows or shrinks the run of im to count instances.
func (v *View) SetInstances(ctx context.Context, im formtree.NodeID, count int) error {
	v.LockUpdate()
	err := v.im.SetInstances(ctx, im, count)
	v.unlockStructural(ctx, err)
	return err
}

// unlockStructural releases the lock taken around an instance operation.
// A successful operation marks the form as structurally changed first.
func (v *View) unlockStructural(ctx context.Context, err error) {
	if err == nil {
		v.structural = true
	}
	v.UnlockUpdate(ctx)
}
